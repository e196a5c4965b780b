package examplebase

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// ReadFiles reads every path concurrently. The contents are returned in
// argument order; the first failure cancels the remaining reads.
func ReadFiles(ctx context.Context, paths ...string) ([][]byte, error) {
	contents := make([][]byte, len(paths))

	group, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "read asset %s", path)
			}
			contents[i] = data
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}

// ReadMeshFiles returns the contents of an OBJ file and its material library.
func ReadMeshFiles(ctx context.Context, objPath string) ([]byte, []byte, error) {
	contents, err := ReadFiles(ctx, objPath, MaterialPath(objPath))
	if err != nil {
		return nil, nil, err
	}
	return contents[0], contents[1], nil
}
