// Package catalog persists decoded certdata stores in a SQLite file and
// records every import.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/segmentio/ksuid"
	"github.com/sensiblebit/certdata"
	_ "modernc.org/sqlite"
)

// certRow maps a row in the certificates table.
type certRow struct {
	SHA256   string `db:"sha256"`
	Label    string `db:"label"`
	Subject  []byte `db:"subject"`
	Issuer   []byte `db:"issuer"`
	Serial   []byte `db:"serial"`
	DER      []byte `db:"der"`
	ImportID string `db:"import_id"`
}

// trustRow maps a row in the trusts table.
type trustRow struct {
	Issuer      []byte `db:"issuer"`
	Serial      []byte `db:"serial"`
	Label       string `db:"label"`
	TLSServer   int    `db:"tls_server"`
	Email       int    `db:"email"`
	CodeSigning int    `db:"code_signing"`
	MD5         []byte `db:"md5"`
	SHA1        []byte `db:"sha1"`
	ImportID    string `db:"import_id"`
}

// Import describes one SaveCatalog call.
type Import struct {
	ID           string    `db:"id" json:"id" yaml:"id"`
	Source       string    `db:"source" json:"source" yaml:"source"`
	ImportedAt   time.Time `db:"imported_at" json:"imported_at" yaml:"imported_at"`
	Certificates int       `db:"certificates" json:"certificates" yaml:"certificates"`
	Trusts       int       `db:"trusts" json:"trusts" yaml:"trusts"`
}

// Catalog is the content of a catalog file.
type Catalog struct {
	Data *certdata.CertData
	// Imports are ordered oldest first.
	Imports []Import
}

// openMemDB creates an in-memory SQLite database with the catalog schema.
func openMemDB() (*sqlx.DB, error) {
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// initSchema creates the certificates, trusts and imports tables.
func initSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS certificates (
			sha256    text PRIMARY KEY,
			label     text NOT NULL,
			subject   blob NOT NULL,
			issuer    blob NOT NULL,
			serial    blob NOT NULL,
			der       blob NOT NULL,
			import_id text NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating certificates table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trusts (
			issuer       blob NOT NULL,
			serial       blob NOT NULL,
			label        text NOT NULL,
			tls_server   integer NOT NULL,
			email        integer NOT NULL,
			code_signing integer NOT NULL,
			md5          blob,
			sha1         blob,
			import_id    text NOT NULL,
			PRIMARY KEY(issuer, serial)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating trusts table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS imports (
			id           text PRIMARY KEY,
			source       text NOT NULL,
			imported_at  timestamp NOT NULL,
			certificates integer NOT NULL,
			trusts       integer NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating imports table: %w", err)
	}
	return nil
}

// attachAndCopy copies every table of the catalog file at dbPath into db.
// Rows already in db win over rows with the same key in the file.
func attachAndCopy(db *sqlx.DB, dbPath string) error {
	_, err := db.Exec("ATTACH DATABASE ? AS diskdb", dbPath)
	if err != nil {
		return fmt.Errorf("attaching database %s: %w", dbPath, err)
	}
	defer func() {
		if _, detachErr := db.Exec("DETACH DATABASE diskdb"); detachErr != nil {
			slog.Warn("detaching database", "path", dbPath, "error", detachErr)
		}
	}()

	for _, table := range []string{"certificates", "trusts", "imports"} {
		if _, err := db.Exec("INSERT OR IGNORE INTO " + table + " SELECT * FROM diskdb." + table); err != nil {
			return fmt.Errorf("loading %s from %s: %w", table, dbPath, err)
		}
	}
	return nil
}

// SaveCatalog writes d to the catalog file at dbPath as a new import from
// source and returns the import record. If the file already exists its
// content is kept; certificates with the same DER and trusts with the same
// issuer and serial are replaced by the new import.
func SaveCatalog(d *certdata.CertData, source, dbPath string) (Import, error) {
	db, err := openMemDB()
	if err != nil {
		return Import{}, fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	id := ksuid.New()
	imp := Import{
		ID:           id.String(),
		Source:       source,
		ImportedAt:   id.Time().UTC(),
		Certificates: len(d.Certs()),
		Trusts:       len(d.Trusts()),
	}

	for _, c := range d.Certs() {
		sum := sha256.Sum256(c.Cert)
		row := certRow{
			SHA256:   hex.EncodeToString(sum[:]),
			Label:    c.Label,
			Subject:  c.Subject,
			Issuer:   c.Issuer,
			Serial:   c.Serial,
			DER:      c.Cert,
			ImportID: imp.ID,
		}
		if _, err := db.NamedExec(`
			INSERT OR REPLACE INTO certificates (sha256, label, subject, issuer, serial, der, import_id)
			VALUES (:sha256, :label, :subject, :issuer, :serial, :der, :import_id)
		`, row); err != nil {
			return Import{}, fmt.Errorf("saving certificate %q: %w", c.Label, err)
		}
	}

	for _, t := range d.Trusts() {
		row := trustRow{
			Issuer:      t.Issuer,
			Serial:      t.Serial,
			Label:       t.Label,
			TLSServer:   int(t.TLSServerTrust),
			Email:       int(t.EmailTrust),
			CodeSigning: int(t.CodeSigningTrust),
			MD5:         t.MD5,
			SHA1:        t.SHA1,
			ImportID:    imp.ID,
		}
		if _, err := db.NamedExec(`
			INSERT OR REPLACE INTO trusts (issuer, serial, label, tls_server, email, code_signing, md5, sha1, import_id)
			VALUES (:issuer, :serial, :label, :tls_server, :email, :code_signing, :md5, :sha1, :import_id)
		`, row); err != nil {
			return Import{}, fmt.Errorf("saving trust %q: %w", t.Label, err)
		}
	}

	if _, err := db.NamedExec(`
		INSERT INTO imports (id, source, imported_at, certificates, trusts)
		VALUES (:id, :source, :imported_at, :certificates, :trusts)
	`, imp); err != nil {
		return Import{}, fmt.Errorf("saving import record: %w", err)
	}

	exists, err := fileExists(dbPath)
	if err != nil {
		return Import{}, err
	}
	if exists {
		if err := attachAndCopy(db, dbPath); err != nil {
			return Import{}, err
		}
	}

	// VACUUM INTO refuses to overwrite, so write beside the target and
	// rename over it.
	tmpPath := dbPath + ".tmp-" + imp.ID
	if _, err := db.Exec("VACUUM INTO ?", tmpPath); err != nil {
		return Import{}, fmt.Errorf("saving database to %s: %w", dbPath, err)
	}
	if err := os.Rename(tmpPath, dbPath); err != nil {
		_ = os.Remove(tmpPath)
		return Import{}, fmt.Errorf("replacing %s: %w", dbPath, err)
	}

	slog.Info("catalog saved", "path", dbPath, "import", imp.ID, "certificates", imp.Certificates, "trusts", imp.Trusts)
	return imp, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
}

// LoadCatalog reads the catalog file at dbPath back into a CertData.
func LoadCatalog(dbPath string) (*Catalog, error) {
	db, err := openMemDB()
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	exists, err := fileExists(dbPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("catalog %s does not exist", dbPath)
	}
	if err := attachAndCopy(db, dbPath); err != nil {
		return nil, err
	}

	var certs []certRow
	if err := db.Select(&certs, "SELECT * FROM certificates"); err != nil {
		return nil, fmt.Errorf("reading certificates: %w", err)
	}
	var trusts []trustRow
	if err := db.Select(&trusts, "SELECT * FROM trusts"); err != nil {
		return nil, fmt.Errorf("reading trusts: %w", err)
	}
	var imports []Import
	if err := db.Select(&imports, "SELECT * FROM imports ORDER BY imported_at, id"); err != nil {
		return nil, fmt.Errorf("reading imports: %w", err)
	}

	objs := make([]certdata.Object, 0, len(certs)+len(trusts))
	for _, c := range certs {
		objs = append(objs, &certdata.Certificate{
			Label:   c.Label,
			Cert:    c.DER,
			Issuer:  c.Issuer,
			Serial:  c.Serial,
			Subject: c.Subject,
		})
	}
	for _, t := range trusts {
		objs = append(objs, &certdata.Trust{
			Label:            t.Label,
			Issuer:           t.Issuer,
			Serial:           t.Serial,
			TLSServerTrust:   certdata.TrustLevel(t.TLSServer),
			EmailTrust:       certdata.TrustLevel(t.Email),
			CodeSigningTrust: certdata.TrustLevel(t.CodeSigning),
			MD5:              nilIfEmpty(t.MD5),
			SHA1:             nilIfEmpty(t.SHA1),
		})
	}

	slog.Debug("loaded catalog", "path", dbPath, "certificates", len(certs), "trusts", len(trusts), "imports", len(imports))
	return &Catalog{Data: certdata.NewCertData(objs), Imports: imports}, nil
}

// nilIfEmpty restores absent optional hashes; the driver stores a nil
// slice as an empty blob.
func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
