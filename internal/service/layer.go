package service

import (
	"context"

	"github.com/juju/errors"

	"github.com/jask/compass/internal/database/repository"
	"github.com/jask/compass/internal/export"
	"github.com/jask/compass/internal/layer"
)

// LayerGenerator asks the server for a layer.
type LayerGenerator interface {
	GenerateLayer(ctx context.Context, sel layer.Selection) (layer.Document, error)
}

// LayerService exports layers and delivers them as layer.json.
type LayerService struct {
	Client  LayerGenerator
	Sink    export.Sink
	History ActivityRecorder
	// Legacy sends {"all": true} instead of {"index": "all"}.
	Legacy bool
}

// ExportResult describes a delivered layer.
type ExportResult struct {
	Selection layer.Selection
	Location  string
	Summary   layer.Summary
	Bytes     int
}

// Selection builds the request body for adversaryID.
func (s *LayerService) Selection(adversaryID string) layer.Selection {
	if s.Legacy {
		return layer.SelectLegacy(adversaryID)
	}
	return layer.Select(adversaryID)
}

// Export requests the layer for adversaryID (empty means all) and delivers the
// pretty-printed document as saved from its data URI.
func (s *LayerService) Export(ctx context.Context, adversaryID string) (res ExportResult, err error) {
	sel := s.Selection(adversaryID)
	defer func() {
		record(ctx, s.History, repository.Activity{
			Kind:   repository.KindExport,
			Target: sel.String(),
			Detail: res.Location,
		}, err)
	}()

	if s.Client == nil || s.Sink == nil {
		return ExportResult{}, errors.NotValidf("layer service without client or sink")
	}
	doc, err := s.Client.GenerateLayer(ctx, sel)
	if err != nil {
		return ExportResult{}, err
	}
	pretty, err := doc.Download()
	if err != nil {
		return ExportResult{}, err
	}
	loc, err := s.Sink.Deliver(ctx, layer.FileName, pretty)
	if err != nil {
		return ExportResult{Selection: sel, Location: loc}, errors.Annotatef(err, "deliver %s", layer.FileName)
	}
	logger.Infof("exported layer for %s to %s", sel, loc)
	return ExportResult{Selection: sel, Location: loc, Summary: doc.Summary(), Bytes: len(pretty)}, nil
}
