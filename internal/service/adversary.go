package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/juju/errors"

	"github.com/jask/compass/internal/compass"
	"github.com/jask/compass/internal/database/repository"
)

// AdversaryClient is the server side of adversary listing and upload.
type AdversaryClient interface {
	UploadAdversary(ctx context.Context, f compass.UploadFile) (compass.UploadResult, error)
	Adversaries(ctx context.Context) ([]compass.Adversary, error)
}

// AdversaryService uploads adversary layers and lists adversaries.
type AdversaryService struct {
	Client  AdversaryClient
	History ActivityRecorder
}

// Upload sends the file at path to the adversary endpoint.
func (s *AdversaryService) Upload(ctx context.Context, path string) (res compass.UploadResult, err error) {
	path = strings.TrimSpace(path)
	defer func() {
		detail := res.AdversaryID
		if res.Name != "" {
			detail = res.Name + " (" + res.AdversaryID + ")"
		}
		record(ctx, s.History, repository.Activity{
			Kind:   repository.KindUpload,
			Target: filepath.Base(path),
			Detail: detail,
		}, err)
	}()

	if path == "" {
		return compass.UploadResult{}, errors.NotValidf("empty upload path")
	}
	if s.Client == nil {
		return compass.UploadResult{}, errors.NotValidf("adversary service without client")
	}
	f, err := os.Open(path)
	if err != nil {
		return compass.UploadResult{}, errors.Annotatef(err, "open %s", path)
	}
	defer f.Close()

	res, err = s.Client.UploadAdversary(ctx, compass.UploadFile{Name: filepath.Base(path), Body: f})
	if err != nil {
		return compass.UploadResult{}, err
	}
	logger.Infof("created adversary %q from %s", res.AdversaryID, path)
	return res, nil
}

// List returns the server's adversaries ordered by name.
func (s *AdversaryService) List(ctx context.Context) ([]compass.Adversary, error) {
	if s.Client == nil {
		return nil, errors.NotValidf("adversary service without client")
	}
	advs, err := s.Client.Adversaries(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(advs, func(i, j int) bool {
		li, lj := strings.ToLower(advs[i].Name), strings.ToLower(advs[j].Name)
		if li != lj {
			return li < lj
		}
		return advs[i].AdversaryID < advs[j].AdversaryID
	})
	return advs, nil
}
