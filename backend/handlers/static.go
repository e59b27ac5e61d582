// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const indexFile = "index.html"

func init() {
	// Types the web build ships that the platform table may lack.
	for ext, typ := range map[string]string{
		".ico":   "image/x-icon",
		".woff2": "font/woff2",
		".wasm":  "application/wasm",
	} {
		_ = mime.AddExtensionType(ext, typ)
	}
}

// StaticHandler serves the single-page web client from a directory.
// Paths that do not name a file fall back to index.html.
type StaticHandler struct {
	root string
}

func NewStaticHandler(root string) *StaticHandler {
	return &StaticHandler{root: filepath.Clean(root)}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if name == "/" {
		name = "/" + indexFile
	}
	full := filepath.Join(h.root, filepath.FromSlash(name))
	if full != h.root && !strings.HasPrefix(full, h.root+string(filepath.Separator)) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
		h.serveFile(w, r, full)
		return
	}
	h.serveFile(w, r, filepath.Join(h.root, indexFile))
}

func (h *StaticHandler) serveFile(w http.ResponseWriter, r *http.Request, file string) {
	f, err := os.Open(file)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(file))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
