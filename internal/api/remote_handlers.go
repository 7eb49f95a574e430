package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerRemoteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "testRemote",
		Method:      http.MethodPost,
		Path:        "/api/v1/remote/test",
		Summary:     "Test remote connection",
		Description: "Checks the remote store is reachable and creates the backup directory when missing",
		Tags:        []string{"Remote"},
		Security:    bearer,
	}, s.handleTestRemote)
}

// RemoteTestOutput reports a successful connection check.
type RemoteTestOutput struct {
	Body struct {
		OK      bool   `json:"ok"`
		Latency string `json:"latency"`
	}
}

func (s *Server) handleTestRemote(ctx context.Context, _ *struct{}) (*RemoteTestOutput, error) {
	start := time.Now()
	if err := s.backups.TestConnection(ctx); err != nil {
		return nil, s.engineError("test remote", err)
	}

	out := &RemoteTestOutput{}
	out.Body.OK = true
	out.Body.Latency = time.Since(start).String()
	return out, nil
}
