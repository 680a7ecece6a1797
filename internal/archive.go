package internal

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path"
	"path/filepath"
	"strings"
)

// CertDataEntryName is the file name looked for inside archives, such as
// the NSS source tarballs where it lives under lib/ckfw/builtins/.
const CertDataEntryName = "certdata.txt"

// ArchiveLimits controls zip bomb protection thresholds.
type ArchiveLimits struct {
	// MaxDecompressionRatio is the maximum allowed ratio of uncompressed to
	// compressed size for a ZIP entry. TAR entries are not ratio-checked
	// because TAR stores uncompressed data.
	MaxDecompressionRatio int64

	// MaxEntryCount is the maximum number of entries examined in one
	// archive. NSS source tarballs hold a few thousand files.
	MaxEntryCount int

	// MaxEntrySize is the maximum decompressed size of the certdata entry.
	MaxEntrySize int64
}

// DefaultArchiveLimits returns conservative defaults for archive extraction.
func DefaultArchiveLimits() ArchiveLimits {
	return ArchiveLimits{
		MaxDecompressionRatio: 100,
		MaxEntryCount:         50_000,
		MaxEntrySize:          32 * 1024 * 1024, // certdata.txt is about 2 MB
	}
}

// ExtractInput holds the parameters for archive extraction.
type ExtractInput struct {
	ArchivePath string
	Data        []byte
	Format      string
	Limits      ArchiveLimits
}

// archiveExtensions maps file extensions to archive format identifiers.
// Compound extensions are handled separately in ArchiveFormat.
var archiveExtensions = map[string]string{
	".zip": "zip",
	".tar": "tar",
	".tgz": "tar.gz",
	".gz":  "gz",
}

// ArchiveFormat returns the archive format for the given path based on its
// extension, or "" if the path is not a recognized archive.
func ArchiveFormat(p string) string {
	lower := strings.ToLower(p)
	if strings.HasSuffix(lower, ".tar.gz") {
		return "tar.gz"
	}
	return archiveExtensions[strings.ToLower(filepath.Ext(p))]
}

// IsArchive reports whether the given path has a recognized archive extension.
func IsArchive(p string) bool {
	return ArchiveFormat(p) != ""
}

// ExtractCertData returns the certdata.txt carried by an archive, along
// with the virtual path ("archive:entry") it was found at. In zip and tar
// archives the entry is the one whose base name is certdata.txt, or the
// only regular file when there is just one; a plain .gz is the file itself.
func ExtractCertData(input ExtractInput) ([]byte, string, error) {
	switch input.Format {
	case "zip":
		return extractZip(input)
	case "tar":
		return extractTar(input, false)
	case "tar.gz":
		return extractTar(input, true)
	case "gz":
		return extractGzip(input)
	default:
		return nil, "", fmt.Errorf("unsupported archive format: %q", input.Format)
	}
}

func isCertDataEntry(name string) bool {
	return path.Base(name) == CertDataEntryName
}

func extractZip(input ExtractInput) ([]byte, string, error) {
	reader, err := zip.NewReader(bytes.NewReader(input.Data), int64(len(input.Data)))
	if err != nil {
		return nil, "", fmt.Errorf("opening ZIP archive %s: %w", input.ArchivePath, err)
	}

	var regular []*zip.File
	var match *zip.File
	for i, f := range reader.File {
		if i >= input.Limits.MaxEntryCount {
			slog.Warn("archive entry count limit reached, stopping",
				"archive", input.ArchivePath, "limit", input.Limits.MaxEntryCount)
			break
		}
		if f.FileInfo().IsDir() {
			continue
		}
		regular = append(regular, f)
		if isCertDataEntry(f.Name) {
			match = f
			break
		}
	}
	if match == nil && len(regular) == 1 {
		match = regular[0]
	}
	if match == nil {
		return nil, "", fmt.Errorf("no %s in %s", CertDataEntryName, input.ArchivePath)
	}

	if match.CompressedSize64 > 0 {
		ratio := int64(match.UncompressedSize64) / int64(match.CompressedSize64)
		if ratio > input.Limits.MaxDecompressionRatio {
			return nil, "", fmt.Errorf("ZIP entry %s: decompression ratio %d exceeds %d", match.Name, ratio, input.Limits.MaxDecompressionRatio)
		}
	}
	if int64(match.UncompressedSize64) > input.Limits.MaxEntrySize {
		return nil, "", fmt.Errorf("ZIP entry %s exceeds max size (%d bytes)", match.Name, input.Limits.MaxEntrySize)
	}

	data, err := readZipEntry(match, input.Limits.MaxEntrySize)
	if err != nil {
		return nil, "", err
	}
	virtualPath := input.ArchivePath + ":" + match.Name
	slog.Debug("extracted certdata from archive", "path", virtualPath, "format", "zip", "bytes", len(data))
	return data, virtualPath, nil
}

// extractTar scans a TAR or TAR.GZ archive. A tar stream cannot be
// rewound, so the single-file fallback only applies when the archive ends
// after its first regular file.
func extractTar(input ExtractInput, gzipped bool) ([]byte, string, error) {
	var reader io.Reader = bytes.NewReader(input.Data)
	if gzipped {
		gr, err := gzip.NewReader(reader)
		if err != nil {
			return nil, "", fmt.Errorf("opening gzip layer for %s: %w", input.ArchivePath, err)
		}
		defer func() {
			if closeErr := gr.Close(); closeErr != nil {
				slog.Warn("closing gzip reader", "archive", input.ArchivePath, "error", closeErr)
			}
		}()
		reader = gr
	}

	tr := tar.NewReader(reader)
	var (
		first     []byte
		firstName string
		regular   int
	)
	for entries := 0; ; entries++ {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("reading TAR archive %s: %w", input.ArchivePath, err)
		}
		if entries >= input.Limits.MaxEntryCount {
			slog.Warn("archive entry count limit reached, stopping",
				"archive", input.ArchivePath, "limit", input.Limits.MaxEntryCount)
			break
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		regular++
		match := isCertDataEntry(header.Name)
		if !match && regular > 1 {
			continue
		}
		if header.Size > input.Limits.MaxEntrySize {
			if match {
				return nil, "", fmt.Errorf("TAR entry %s exceeds max size (%d bytes)", header.Name, input.Limits.MaxEntrySize)
			}
			continue
		}

		// LimitReader regardless of header claims.
		data, err := io.ReadAll(io.LimitReader(tr, safeLimitSize(input.Limits.MaxEntrySize)))
		if err != nil {
			return nil, "", fmt.Errorf("reading TAR entry %s: %w", header.Name, err)
		}
		if int64(len(data)) > input.Limits.MaxEntrySize {
			return nil, "", fmt.Errorf("TAR entry %s exceeded max size despite header claim", header.Name)
		}
		if match {
			virtualPath := input.ArchivePath + ":" + header.Name
			slog.Debug("extracted certdata from archive", "path", virtualPath, "format", formatLabel(gzipped), "bytes", len(data))
			return data, virtualPath, nil
		}
		first, firstName = data, header.Name
	}

	if regular == 1 && firstName != "" {
		return first, input.ArchivePath + ":" + firstName, nil
	}
	return nil, "", fmt.Errorf("no %s in %s", CertDataEntryName, input.ArchivePath)
}

func extractGzip(input ExtractInput) ([]byte, string, error) {
	gr, err := gzip.NewReader(bytes.NewReader(input.Data))
	if err != nil {
		return nil, "", fmt.Errorf("opening gzip file %s: %w", input.ArchivePath, err)
	}
	defer func() {
		if closeErr := gr.Close(); closeErr != nil {
			slog.Warn("closing gzip reader", "archive", input.ArchivePath, "error", closeErr)
		}
	}()
	data, err := io.ReadAll(io.LimitReader(gr, safeLimitSize(input.Limits.MaxEntrySize)))
	if err != nil {
		return nil, "", fmt.Errorf("decompressing %s: %w", input.ArchivePath, err)
	}
	if int64(len(data)) > input.Limits.MaxEntrySize {
		return nil, "", fmt.Errorf("%s exceeds max size (%d bytes) when decompressed", input.ArchivePath, input.Limits.MaxEntrySize)
	}
	return data, input.ArchivePath, nil
}

// readZipEntry reads the contents of a ZIP file entry with an enforced size
// limit, regardless of what the ZIP header claims.
func readZipEntry(f *zip.File, maxSize int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening ZIP entry %s: %w", f.Name, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			slog.Warn("closing ZIP entry", "entry", f.Name, "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(rc, safeLimitSize(maxSize)))
	if err != nil {
		return nil, fmt.Errorf("reading ZIP entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("ZIP entry %s exceeds max size (%d bytes)", f.Name, maxSize)
	}
	return data, nil
}

// safeLimitSize returns maxSize+1 for overflow detection in io.LimitReader,
// clamped to math.MaxInt64 to prevent int64 wraparound.
func safeLimitSize(maxSize int64) int64 {
	if maxSize == math.MaxInt64 {
		return math.MaxInt64
	}
	return maxSize + 1
}

// formatLabel returns a human-readable format label for tar archives.
func formatLabel(gzipped bool) string {
	if gzipped {
		return "tar.gz"
	}
	return "tar"
}
