package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sensiblebit/certdata"
	"github.com/sensiblebit/certdata/internal"
)

// openInput opens path for reading and returns the name to report it by.
// "-" is stdin; archives are searched for their certdata.txt entry.
func openInput(path string) (io.ReadCloser, string, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	if internal.IsArchive(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("reading archive %s: %w", path, err)
		}
		text, virtualPath, err := internal.ExtractCertData(internal.ExtractInput{
			ArchivePath: path,
			Data:        data,
			Format:      internal.ArchiveFormat(path),
			Limits:      internal.DefaultArchiveLimits(),
		})
		if err != nil {
			return nil, "", err
		}
		return io.NopCloser(bytes.NewReader(text)), virtualPath, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	return f, path, nil
}

// decodeCertData reads a certdata stream into a CertData. With skipInvalid,
// records with structure errors are logged and dropped; the count of dropped
// records is returned.
func decodeCertData(r io.Reader, name string, skipInvalid bool) (*certdata.CertData, int, error) {
	objects := certdata.NewObjectReader(r)
	var (
		objs    []certdata.Object
		skipped int
	)
	for obj, err := range objects.All() {
		if err != nil {
			if skipInvalid && certdata.KindOf(err) == certdata.KindStructure {
				slog.Warn("skipping invalid record", "path", name, "offset", objects.Offset(), "error", err)
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("reading %s: %w", name, err)
		}
		objs = append(objs, obj)
	}
	d := certdata.NewCertData(objs)
	slog.Debug("read certdata", "path", name, "certificates", len(d.Certs()), "trusts", len(d.Trusts()), "skipped", skipped)
	return d, skipped, nil
}

// readCertData opens path and decodes it with the configured skipInvalid.
// The returned name is the one openInput reports.
func readCertData(path string) (*certdata.CertData, string, int, error) {
	in, name, err := openInput(path)
	if err != nil {
		return nil, "", 0, err
	}
	defer in.Close()
	d, skipped, err := decodeCertData(in, name, cfg.SkipInvalid)
	return d, name, skipped, err
}
