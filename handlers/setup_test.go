// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/pilrt/checkin"
	"github.com/danielhkuo/pilrt/eligibility"
	"github.com/danielhkuo/pilrt/queue"
	"github.com/danielhkuo/pilrt/session"
	"github.com/danielhkuo/pilrt/store/memstore"
	"github.com/danielhkuo/pilrt/testutil"
)

// fixture holds the components handler tests drive.
type fixture struct {
	store     *memstore.Store
	validator *eligibility.Validator
	desk      *checkin.Desk
	engine    *queue.Engine
	registry  *session.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testutil.GetTestConfig()
	s := memstore.New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	validator := eligibility.NewValidator(s, nil)
	registry := session.NewRegistry(ctx, validator, s, nil, session.Options{
		ResultWindow:    cfg.ResultWindow,
		SuccessWindow:   cfg.SuccessWindow,
		ScanLatchWindow: cfg.ScanLatchWindow,
	})
	t.Cleanup(func() {
		cancel()
		registry.Wait()
	})

	return &fixture{
		store:     s,
		validator: validator,
		desk: checkin.NewDesk(validator, checkin.Options{
			ResultWindow:    cfg.ResultWindow,
			ScanLatchWindow: cfg.ScanLatchWindow,
		}),
		engine:   queue.NewEngine(s, queue.DefaultPolicy(), nil, nil),
		registry: registry,
	}
}

// serve runs one request through h with the path values set.
func serve(h http.HandlerFunc, req *http.Request, pathValues map[string]string) *httptest.ResponseRecorder {
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}
