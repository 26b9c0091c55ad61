package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// FileFetcher resolves file:// URIs directly from the local filesystem.
type FileFetcher struct {
	// stagingDir is where the fetched bytes are copied so the caller
	// always receives a path inside the cache's control; file: sources
	// are read-only inputs, never mutated in place.
	stagingDir string
}

func NewFileFetcher(stagingDir string) *FileFetcher {
	return &FileFetcher{stagingDir: stagingDir}
}

func (f *FileFetcher) Scheme() string { return "file" }

const opFileFetch = "resolver.FileFetcher.Fetch"

func (f *FileFetcher) Fetch(ctx context.Context, canonical string) (Result, error) {
	path := strings.TrimPrefix(canonical, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, wassetteerr.New(wassetteerr.Resolve, opFileFetch, "NotFound", "file not found: "+path, err)
		}
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opFileFetch, "Transport", "reading file: "+path, err)
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	tmp, err := os.CreateTemp(f.stagingDir, "wassette-fetch-*")
	if err != nil {
		return Result{}, wassetteerr.Internalf(opFileFetch, err, "creating staging file")
	}
	defer tmp.Close()
	if _, err := tmp.Write(data); err != nil {
		return Result{}, wassetteerr.Internalf(opFileFetch, err, "writing staging file")
	}
	return Result{LocalPath: tmp.Name(), Digest: digest}, nil
}
