// Package service implements the widget's export and upload operations.
package service

import (
	"context"

	"github.com/juju/loggo"

	"github.com/jask/compass/internal/database/repository"
)

var logger = loggo.GetLogger("compass.service")

// ActivityRecorder persists what the user did. A nil recorder disables history.
type ActivityRecorder interface {
	Record(ctx context.Context, a repository.Activity) (repository.Activity, error)
}

func record(ctx context.Context, h ActivityRecorder, a repository.Activity, err error) {
	if h == nil {
		return
	}
	a.OK = err == nil
	if err != nil {
		a.Error = err.Error()
	}
	if _, rerr := h.Record(ctx, a); rerr != nil {
		logger.Warningf("record %s activity: %v", a.Kind, rerr)
	}
}
