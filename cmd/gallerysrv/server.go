package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/handlers"

	"github.com/bcampbell/disasteromat/store"
)

type Logger interface {
	Printf(format string, v ...interface{})
}

type nullLogger struct{}

func (l nullLogger) Printf(format string, v ...interface{}) {
}

func EmitError(w http.ResponseWriter, statusCode int) {
	txt := fmt.Sprintf("%d - %s", statusCode, http.StatusText(statusCode))
	http.Error(w, txt, statusCode)
}

// default (and max) records per /api/records request
const defaultCount = 200

type GalleryServer struct {
	ErrLog  Logger
	InfoLog Logger
	Port    int
	Prefix  string

	db *store.Store
	// dataset dir holding texts/ and images/ - empty disables file serving
	datasetDir string
}

func NewServer(db *store.Store, datasetDir string, port int, prefix string, infoLog Logger, errLog Logger) *GalleryServer {
	return &GalleryServer{
		db:         db,
		datasetDir: datasetDir,
		Port:       port,
		Prefix:     prefix,
		InfoLog:    infoLog,
		ErrLog:     errLog,
	}
}

func (srv *GalleryServer) Run() error {
	http.Handle(srv.Prefix+"/api/records", handlers.CompressHandler(
		http.HandlerFunc(srv.recordsHandler)))

	http.Handle(srv.Prefix+"/api/summary", handlers.CompressHandler(
		http.HandlerFunc(srv.summaryHandler)))

	if srv.datasetDir != "" {
		for _, sub := range []string{"texts", "images"} {
			http.Handle(srv.Prefix+"/"+sub+"/",
				http.StripPrefix(srv.Prefix+"/"+sub+"/",
					http.FileServer(http.Dir(filepath.Join(srv.datasetDir, sub)))))
		}
	}

	srv.InfoLog.Printf("Started at localhost:%d%s/\n", srv.Port, srv.Prefix)
	return http.ListenAndServe(fmt.Sprintf(":%d", srv.Port), nil)
}

// implement the record-fetching API.
// params:
//
//	since_id - only records with id greater than this (default 0)
//	count    - max records to return (default/max 200)
//
// a "next" since_id is included when the reply might not be the lot.
func (srv *GalleryServer) recordsHandler(w http.ResponseWriter, r *http.Request) {
	sinceID, err := intParam(r, "since_id", 0)
	if err != nil {
		EmitError(w, 400)
		return
	}
	count, err := intParam(r, "count", defaultCount)
	if err != nil || count < 1 || count > defaultCount {
		EmitError(w, 400)
		return
	}

	recs, err := srv.db.Fetch(sinceID, count)
	if err != nil {
		srv.ErrLog.Printf("/api/records DB error: %s\n", err)
		EmitError(w, 500)
		return
	}

	out := struct {
		Records []*store.StoredRecord `json:"records"`
		Next    struct {
			SinceID int `json:"since_id,omitempty"`
		} `json:"next,omitempty"`
	}{Records: recs}
	if len(recs) == count {
		out.Next.SinceID = recs[len(recs)-1].ID
	}

	outBuf, err := json.Marshal(out)
	if err != nil {
		srv.ErrLog.Printf("/api/records json encoding error: %s\n", err)
		EmitError(w, 500)
		return
	}
	_, err = w.Write(outBuf)
	if err != nil {
		srv.ErrLog.Printf("Write error: %s\n", err)
		return
	}

	srv.InfoLog.Printf("%s records (%d sent, since_id=%d)\n", r.RemoteAddr, len(recs), sinceID)
}

// implement the per-day summary API
func (srv *GalleryServer) summaryHandler(w http.ResponseWriter, r *http.Request) {
	days, err := srv.db.Summary()
	if err != nil {
		srv.ErrLog.Printf("/api/summary DB error: %s\n", err)
		EmitError(w, 500)
		return
	}

	out := struct {
		Days []store.DaySummary `json:"days"`
	}{days}

	outBuf, err := json.Marshal(out)
	if err != nil {
		srv.ErrLog.Printf("/api/summary json encoding error: %s\n", err)
		EmitError(w, 500)
		return
	}
	_, err = w.Write(outBuf)
	if err != nil {
		srv.ErrLog.Printf("Write error: %s\n", err)
		return
	}

	srv.InfoLog.Printf("%s summary (%d days)\n", r.RemoteAddr, len(days))
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.FormValue(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
