package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jddeal/nexrad-l2/archive2"
)

var (
	errNoSuchVolume = errors.New("no such volume number")
	errBadVolume    = errors.New("invalid volume number")
)

// concurrent chunk downloads per realtime volume
const realtimeFetchers = 8

// loadArchiveRealtime rebuilds a volume from the realtime chunk bucket. The first chunk
// carries the volume header and the metadata record, every later chunk is a run of LDM
// records, so the chunks concatenated in key order read as one archive file.
func (s *server) loadArchiveRealtime(ctx context.Context, site string, volume int) (*archive2.Archive, error) {
	bucket := aws.String(s.cfg.Server.RealtimeBucket)

	var objects []*s3.Object
	err := s.svc.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: bucket,
		Prefix: aws.String(fmt.Sprintf("%s/%d/", site, volume)),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		objects = append(objects, page.Contents...)
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, errNoSuchVolume
	}

	chunks := make([][]byte, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(realtimeFetchers)
	for i, chunkObjectInfo := range objects {
		i, key := i, chunkObjectInfo.Key
		g.Go(func() error {
			chunk, err := s.svc.GetObjectWithContext(gctx, &s3.GetObjectInput{
				Bucket: bucket,
				Key:    key,
			})
			if err != nil {
				return fmt.Errorf("fetching %s: %w", *key, err)
			}
			defer chunk.Body.Close()

			data, err := io.ReadAll(chunk.Body)
			if err != nil {
				return fmt.Errorf("reading %s: %w", *key, err)
			}
			chunks[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	readers := make([]io.Reader, len(chunks))
	var size int64
	for i, data := range chunks {
		readers[i] = bytes.NewReader(data)
		size += int64(len(data))
	}
	logrus.Debugf("realtime %s/%d: %d chunks, %d bytes", site, volume, len(chunks), size)
	return s.decode(ctx, "realtime", io.MultiReader(readers...), size)
}

func (s *server) realtimeMetaHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	site := vars["site"]
	volume, err := strconv.Atoi(vars["volume"])
	if err != nil {
		writeError(w, req, fmt.Errorf("%w: %q", errBadVolume, vars["volume"]))
		return
	}

	ar2, err := s.loadArchiveRealtime(req.Context(), site, volume)
	if err != nil {
		writeError(w, req, err)
		return
	}
	writeJSON(w, summarize(ar2))
}
