// Package server exposes the engine over HTTP with JSON bodies.
package server

import (
	"fmt"
	"net/http"
	"strconv"

	pz "github.com/weberc2/httpeasy"
	"github.com/weberc2/snfs/pkg/backup"
	"github.com/weberc2/snfs/pkg/snfs"
	. "github.com/weberc2/snfs/pkg/types"
)

type Server struct {
	FileSystem *snfs.FileSystem

	// Backups and Image are optional; without them the backup routes
	// report 404.
	Backups *backup.Store
	Image   string
}

func (s *Server) Routes() []pz.Route {
	return []pz.Route{
		{Method: "GET", Path: "/ping", Handler: s.Ping},
		{Method: "GET", Path: "/lookup", Handler: s.Lookup},
		{Method: "GET", Path: "/inodes/{ino}", Handler: s.GetAttrs},
		{Method: "GET", Path: "/inodes/{ino}/data", Handler: s.Read},
		{Method: "POST", Path: "/inodes/{ino}/data", Handler: s.Write},
		{Method: "GET", Path: "/inodes/{ino}/entries", Handler: s.ReadDir},
		{Method: "POST", Path: "/inodes/{ino}/entries", Handler: s.Create},
		{
			Method:  "DELETE",
			Path:    "/inodes/{ino}/entries/{name}",
			Handler: s.Remove,
		},
		{Method: "POST", Path: "/append", Handler: s.Append},
		{Method: "POST", Path: "/copy", Handler: s.Copy},
		{Method: "POST", Path: "/defrag", Handler: s.Defrag},
		{Method: "GET", Path: "/usage", Handler: s.DiskUsage},
		{Method: "GET", Path: "/cache", Handler: s.DumpCache},
		{Method: "GET", Path: "/backups", Handler: s.ListBackups},
		{Method: "POST", Path: "/backups", Handler: s.PushBackup},
		{Method: "POST", Path: "/backups/restore", Handler: s.PullBackup},
	}
}

type ErrorResponse struct {
	Category snfs.Category `json:"category"`
	Message  string        `json:"message"`
}

// handleError maps an engine error onto a status code by category.
func handleError(message string, err error) pz.Response {
	category := snfs.CategoryOf(err)
	body := pz.JSON(&ErrorResponse{Category: category, Message: err.Error()})
	logging := struct {
		Message  string
		Category snfs.Category
		Error    string
	}{
		Message:  message,
		Category: category,
		Error:    err.Error(),
	}

	switch category {
	case snfs.CategoryMalformed:
		return pz.BadRequest(body, logging)
	case snfs.CategoryNotFound:
		return pz.NotFound(body, logging)
	case snfs.CategoryWrongType, snfs.CategoryAlreadyExists:
		return pz.Conflict(body, logging)
	case snfs.CategoryResourceExhausted:
		rsp := pz.InternalServerError(logging)
		rsp.Status = http.StatusInsufficientStorage
		rsp.Data = body
		return rsp
	default:
		rsp := pz.InternalServerError(logging)
		rsp.Data = body
		return rsp
	}
}

func badRequest(format string, v ...interface{}) pz.Response {
	message := fmt.Sprintf(format, v...)
	return pz.BadRequest(
		pz.JSON(&ErrorResponse{
			Category: snfs.CategoryMalformed,
			Message:  message,
		}),
		struct{ Message string }{message},
	)
}

func inoVar(r pz.Request) (Ino, error) {
	ino, err := strconv.ParseUint(r.Vars["ino"], 10, 16)
	if err != nil {
		return InoNil, fmt.Errorf("parsing ino `%s`: %w", r.Vars["ino"], err)
	}
	return Ino(ino), nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r pz.Request, key string, fallback int64) (int64, error) {
	if r.URL == nil {
		return fallback, nil
	}
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing `%s` parameter `%s`: %w", key, s, err)
	}
	return v, nil
}

func query(r pz.Request, key string) string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Query().Get(key)
}
