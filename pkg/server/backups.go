package server

import (
	"errors"

	pz "github.com/weberc2/httpeasy"
	"github.com/weberc2/snfs/pkg/backup"
	"github.com/weberc2/snfs/pkg/blocks"
	"github.com/weberc2/snfs/pkg/snfs"
)

const (
	backupsDisabledMessage = "backups are not configured"
)

type BackupResponse struct {
	Key string `json:"key"`
}

type BackupListResponse struct {
	Keys []string `json:"keys"`
}

func backupsDisabled() pz.Response {
	return pz.NotFound(
		pz.JSON(&ErrorResponse{
			Category: snfs.CategoryNotFound,
			Message:  backupsDisabledMessage,
		}),
		struct{ Message string }{backupsDisabledMessage},
	)
}

func (s *Server) ListBackups(r pz.Request) pz.Response {
	if s.Backups == nil {
		return backupsDisabled()
	}
	keys, err := s.Backups.List(s.Image)
	if err != nil {
		return handleError("listing backups", err)
	}
	return pz.Ok(pz.JSON(&BackupListResponse{Keys: keys}))
}

func (s *Server) PushBackup(r pz.Request) pz.Response {
	if s.Backups == nil {
		return backupsDisabled()
	}
	var key string
	if err := s.FileSystem.WithDevice(func(device blocks.Device) error {
		var err error
		key, err = s.Backups.Push(s.Image, device)
		return err
	}); err != nil {
		return handleError("pushing backup", err)
	}
	return pz.Created(pz.JSON(&BackupResponse{Key: key}), struct {
		Message string
		Key     string
	}{
		Message: "pushed backup",
		Key:     key,
	})
}

func (s *Server) PullBackup(r pz.Request) pz.Response {
	if s.Backups == nil {
		return backupsDisabled()
	}
	var req BackupResponse
	if err := r.JSON(&req); err != nil {
		return badRequest("malformed `BackupResponse` JSON: %v", err)
	}
	if req.Key == "" {
		return badRequest("missing backup key")
	}

	if err := s.FileSystem.WithDevice(func(device blocks.Device) error {
		return s.Backups.Pull(req.Key, device)
	}); err != nil {
		if errors.Is(err, backup.ImageSizeMismatchErr) {
			return badRequest("%v", err)
		}
		return handleError("pulling backup", err)
	}
	return pz.Ok(pz.JSON(&req), struct {
		Message string
		Key     string
	}{
		Message: "restored backup",
		Key:     req.Key,
	})
}
