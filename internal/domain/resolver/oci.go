package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// componentLayerMediaType identifies the single blob an OCI-packaged
// component artifact carries, per §4.3.
const componentLayerMediaType = "application/vnd.wasm.component.layer.v1+wasm"

// OCIFetcher resolves oci:// references by pulling the referenced
// manifest and its component-layer blob through oras-go/v2's remote
// repository and in-memory content store. There is no teacher adapter
// for OCI; this is reconstructed directly from oras-go/v2's documented
// Copy/Fetch API (see DESIGN.md).
type OCIFetcher struct {
	stagingDir string
	plainHTTP  bool
}

func NewOCIFetcher(stagingDir string) *OCIFetcher {
	return &OCIFetcher{stagingDir: stagingDir}
}

func (f *OCIFetcher) Scheme() string { return "oci" }

const opOCIFetch = "resolver.OCIFetcher.Fetch"

func (f *OCIFetcher) Fetch(ctx context.Context, canonical string) (Result, error) {
	ref := strings.TrimPrefix(canonical, "oci://")

	repo, err := remote.NewRepository(ref)
	if err != nil {
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opOCIFetch, "Unsupported", "parsing oci reference "+ref, err)
	}
	repo.PlainHTTP = f.plainHTTP

	dst := memory.New()
	desc, err := oras.Copy(ctx, repo, repo.Reference.Reference, dst, repo.Reference.Reference, oras.DefaultCopyOptions)
	if err != nil {
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opOCIFetch, "NotFound", "pulling manifest for "+ref, err)
	}

	manifestRaw, err := content.FetchAll(ctx, dst, desc)
	if err != nil {
		return Result{}, wassetteerr.Internalf(opOCIFetch, err, "reading manifest")
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(manifestRaw, &manifest); err != nil {
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opOCIFetch, "Unsupported", "decoding manifest", err)
	}

	var layer *ocispec.Descriptor
	for i := range manifest.Layers {
		if manifest.Layers[i].MediaType == componentLayerMediaType {
			layer = &manifest.Layers[i]
			break
		}
	}
	if layer == nil {
		return Result{}, wassetteerr.New(wassetteerr.Resolve, opOCIFetch, "Unsupported", "manifest has no "+componentLayerMediaType+" layer", nil)
	}

	rc, err := dst.Fetch(ctx, *layer)
	if err != nil {
		return Result{}, wassetteerr.Internalf(opOCIFetch, err, "fetching component layer blob")
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(f.stagingDir, "wassette-fetch-*")
	if err != nil {
		return Result{}, wassetteerr.Internalf(opOCIFetch, err, "creating staging file")
	}
	defer tmp.Close()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), rc); err != nil {
		return Result{}, wassetteerr.Internalf(opOCIFetch, err, "streaming component layer")
	}

	return Result{LocalPath: tmp.Name(), Digest: hex.EncodeToString(hasher.Sum(nil))}, nil
}
