package compass

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
)

// UploadField is the multipart field the adversary endpoint reads.
const UploadField = "file"

// Adversary is the subset of the server's adversary object the client shows.
type Adversary struct {
	AdversaryID string `json:"adversary_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UploadFile is a single file picked for upload.
type UploadFile struct {
	Name string
	Body io.Reader
}

// UploadResult is whatever the server said about the created adversary. Both
// fields are empty when the server answered with something other than JSON.
type UploadResult struct {
	AdversaryID string `json:"adversary_id"`
	Name        string `json:"name"`
}

// UploadAdversary posts f as multipart form data under UploadField.
func (c *Client) UploadAdversary(ctx context.Context, f UploadFile) (UploadResult, error) {
	name := filepath.Base(strings.TrimSpace(f.Name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return UploadResult{}, errors.NotValidf("empty upload file name")
	}
	if f.Body == nil {
		return UploadResult{}, errors.NotValidf("upload %q without body", name)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(UploadField, name)
	if err != nil {
		return UploadResult{}, errors.Annotate(err, "create form file")
	}
	if _, err := io.Copy(part, f.Body); err != nil {
		return UploadResult{}, errors.Annotatef(err, "read %s", name)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, errors.Annotate(err, "close multipart body")
	}

	size := buf.Len()
	req, err := c.newRequest(ctx, http.MethodPost, AdversaryPath, &buf)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var raw []byte
	if err := c.do(req, &raw); err != nil {
		return UploadResult{}, errors.Annotatef(err, "upload %s", name)
	}
	var res UploadResult
	if len(bytes.TrimSpace(raw)) > 0 && json.Valid(raw) {
		if err := json.Unmarshal(raw, &res); err != nil {
			logger.Debugf("upload response is not an adversary object: %v", err)
		}
	}
	logger.Infof("uploaded %s (%d bytes) as adversary %q", name, size, res.AdversaryID)
	return res, nil
}

// Adversaries lists the adversaries known to the server.
func (c *Client) Adversaries(ctx context.Context) ([]Adversary, error) {
	var out []Adversary
	if err := c.GetJSON(ctx, AdversariesPath, &out); err != nil {
		return nil, errors.Annotate(err, "list adversaries")
	}
	return out, nil
}
