package server

import (
	pz "github.com/weberc2/httpeasy"
	. "github.com/weberc2/snfs/pkg/types"
)

type PingResponse struct {
	Message string `json:"message"`
}

func (s *Server) Ping(r pz.Request) pz.Response {
	return pz.Ok(pz.JSON(&PingResponse{
		Message: s.FileSystem.Ping(query(r, "msg")),
	}))
}

type LookupResponse struct {
	Ino  Ino  `json:"ino"`
	Size Byte `json:"size"`
}

func (s *Server) Lookup(r pz.Request) pz.Response {
	path := query(r, "path")
	ino, size, err := s.FileSystem.Lookup(path)
	if err != nil {
		return handleError("looking up path", err)
	}
	return pz.Ok(pz.JSON(&LookupResponse{Ino: ino, Size: size}))
}

func (s *Server) GetAttrs(r pz.Request) pz.Response {
	ino, err := inoVar(r)
	if err != nil {
		return badRequest("%v", err)
	}
	attrs, err := s.FileSystem.GetAttrs(ino)
	if err != nil {
		return handleError("getting attributes", err)
	}
	return pz.Ok(pz.JSON(&attrs))
}

// Data carries file content; it is base64 in JSON.
type Data struct {
	Offset Byte   `json:"offset"`
	Data   []byte `json:"data"`
}

func (s *Server) Read(r pz.Request) pz.Response {
	ino, err := inoVar(r)
	if err != nil {
		return badRequest("%v", err)
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return badRequest("%v", err)
	}
	count, err := queryInt(r, "count", int64(MaxFileSize))
	if err != nil {
		return badRequest("%v", err)
	}

	content, err := s.FileSystem.Read(ino, Byte(offset), Byte(count))
	if err != nil {
		return handleError("reading file", err)
	}
	return pz.Ok(pz.JSON(&Data{Offset: Byte(offset), Data: content}))
}

type SizeResponse struct {
	Size Byte `json:"size"`
}

func (s *Server) Write(r pz.Request) pz.Response {
	ino, err := inoVar(r)
	if err != nil {
		return badRequest("%v", err)
	}
	var req Data
	if err := r.JSON(&req); err != nil {
		return badRequest("malformed `Data` JSON: %v", err)
	}

	size, err := s.FileSystem.Write(ino, req.Offset, req.Data)
	if err != nil {
		return handleError("writing file", err)
	}
	return pz.Ok(pz.JSON(&SizeResponse{Size: size}))
}

func (s *Server) ReadDir(r pz.Request) pz.Response {
	ino, err := inoVar(r)
	if err != nil {
		return badRequest("%v", err)
	}
	max, err := queryInt(r, "max", 0)
	if err != nil {
		return badRequest("%v", err)
	}

	infos, err := s.FileSystem.ReadDir(ino, int(max))
	if err != nil {
		return handleError("reading directory", err)
	}
	return pz.Ok(pz.JSON(infos))
}

type CreateRequest struct {
	Name string `json:"name"`
	Dir  bool   `json:"dir"`
}

type InoResponse struct {
	Ino Ino `json:"ino"`
}

// Create makes a file, or a directory when the request says so.
func (s *Server) Create(r pz.Request) pz.Response {
	dir, err := inoVar(r)
	if err != nil {
		return badRequest("%v", err)
	}
	var req CreateRequest
	if err := r.JSON(&req); err != nil {
		return badRequest("malformed `CreateRequest` JSON: %v", err)
	}

	create := s.FileSystem.Create
	if req.Dir {
		create = s.FileSystem.Mkdir
	}
	ino, err := create(dir, req.Name)
	if err != nil {
		return handleError("creating entry", err)
	}
	return pz.Created(pz.JSON(&InoResponse{Ino: ino}), struct {
		Message string
		Dir     Ino
		Name    string
		Ino     Ino
	}{
		Message: "created entry",
		Dir:     dir,
		Name:    req.Name,
		Ino:     ino,
	})
}

func (s *Server) Remove(r pz.Request) pz.Response {
	dir, err := inoVar(r)
	if err != nil {
		return badRequest("%v", err)
	}
	name := r.Vars["name"]
	if err := s.FileSystem.Remove(dir, name); err != nil {
		return handleError("removing entry", err)
	}
	return pz.Ok(pz.JSON(&InoResponse{Ino: dir}), struct {
		Message string
		Dir     Ino
		Name    string
	}{
		Message: "removed entry",
		Dir:     dir,
		Name:    name,
	})
}

// TransferRequest names a source and a destination file for append and
// copy.
type TransferRequest struct {
	SrcDir Ino    `json:"srcDir"`
	Src    string `json:"src"`
	DstDir Ino    `json:"dstDir"`
	Dst    string `json:"dst"`
}

func (s *Server) Append(r pz.Request) pz.Response {
	var req TransferRequest
	if err := r.JSON(&req); err != nil {
		return badRequest("malformed `TransferRequest` JSON: %v", err)
	}
	size, err := s.FileSystem.Append(req.SrcDir, req.Src, req.DstDir, req.Dst)
	if err != nil {
		return handleError("appending file", err)
	}
	return pz.Ok(pz.JSON(&SizeResponse{Size: size}))
}

func (s *Server) Copy(r pz.Request) pz.Response {
	var req TransferRequest
	if err := r.JSON(&req); err != nil {
		return badRequest("malformed `TransferRequest` JSON: %v", err)
	}
	ino, err := s.FileSystem.Copy(req.SrcDir, req.Src, req.DstDir, req.Dst)
	if err != nil {
		return handleError("copying file", err)
	}
	return pz.Ok(pz.JSON(&InoResponse{Ino: ino}))
}

type DefragResponse struct {
	Moved Block `json:"moved"`
}

func (s *Server) Defrag(r pz.Request) pz.Response {
	moved, err := s.FileSystem.Defrag()
	if err != nil {
		return handleError("defragmenting", err)
	}
	return pz.Ok(pz.JSON(&DefragResponse{Moved: moved}))
}

func (s *Server) DiskUsage(r pz.Request) pz.Response {
	usage, err := s.FileSystem.DiskUsage()
	if err != nil {
		return handleError("computing disk usage", err)
	}
	return pz.Ok(pz.JSON(&usage))
}

func (s *Server) DumpCache(r pz.Request) pz.Response {
	return pz.Ok(pz.JSON(s.FileSystem.DumpCache()))
}
