package report

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

// Archive bundles files into a .tar.xz stream, flat, by base name.
func Archive(w io.Writer, paths ...string) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(xw)
	for _, p := range paths {
		if err := addFile(tw, p); err != nil {
			_ = tw.Close()
			_ = xw.Close()
			return err
		}
	}
	if err := tw.Close(); err != nil {
		_ = xw.Close()
		return err
	}
	return xw.Close()
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(path)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

// Extract lists the archive entries and their contents, used to verify a
// bundle before it is mailed.
func Extract(r io.Reader) (map[string][]byte, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	tr := tar.NewReader(xr)
	out := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		out[hdr.Name] = data
	}
}
