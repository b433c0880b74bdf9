package compass

import (
	"context"

	"github.com/juju/errors"

	"github.com/jask/compass/internal/layer"
)

// GenerateLayer asks the plugin to build a layer for sel.
func (c *Client) GenerateLayer(ctx context.Context, sel layer.Selection) (layer.Document, error) {
	var raw []byte
	if err := c.PostJSON(ctx, LayerPath, sel, &raw); err != nil {
		return layer.Document{}, errors.Annotatef(err, "generate layer for %s", sel)
	}
	doc, err := layer.Parse(raw)
	if err != nil {
		return layer.Document{}, errors.Annotate(err, "generate layer")
	}
	return doc, nil
}
