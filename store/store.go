// Package store keeps an index of ingested disk images and the pictures found
// in them. Original picture bytes are kept zstd compressed so they can be
// exported unchanged.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

var schema = []string{
	"CREATE TABLE IF NOT EXISTS disk (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, sha256 TEXT NOT NULL, format TEXT NOT NULL, platform TEXT NOT NULL, name TEXT NOT NULL, files INTEGER NOT NULL, images INTEGER NOT NULL)",
	"CREATE TABLE IF NOT EXISTS image (id INTEGER PRIMARY KEY NOT NULL, disk_id INTEGER, source TEXT NOT NULL, entry TEXT NOT NULL, name TEXT NOT NULL, format TEXT NOT NULL, platform TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, size INTEGER NOT NULL, sha256 TEXT NOT NULL, original BLOB NOT NULL, UNIQUE(source, entry), FOREIGN KEY(disk_id) REFERENCES disk(id) ON DELETE CASCADE)",
	"CREATE INDEX IF NOT EXISTS image_sha256 ON image(sha256)",
}

type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the sqlite database in file.
func Open(file string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, q := range schema {
		if _, err = db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

func (s *Store) Close() error {
	s.dec.Close()
	s.enc.Close()
	return s.db.Close()
}

// Checksum is the hex SHA-256 used to key disks and pictures.
func Checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type Disk struct {
	ID       int64
	Path     string
	SHA256   string
	Format   string
	Platform string
	Name     string
	Files    int
	Images   int
}

// HasDisk reports whether path was already ingested with the same content.
func (s *Store) HasDisk(path, sha string) (bool, error) {
	var have string
	switch err := s.db.QueryRow("SELECT sha256 FROM disk WHERE path = ?", path).Scan(&have); err {
	case sql.ErrNoRows:
		return false, nil
	case nil:
		return have == sha, nil
	default:
		return false, err
	}
}

// AddDisk records d and returns its id. A disk already stored under the same
// path is replaced along with its pictures.
func (s *Store) AddDisk(d *Disk) (int64, error) {
	if _, err := s.db.Exec("DELETE FROM disk WHERE path = ?", d.Path); err != nil {
		return 0, err
	}
	result, err := s.db.Exec("INSERT INTO disk (path, sha256, format, platform, name, files, images) VALUES (?, ?, ?, ?, ?, ?, ?)",
		d.Path, d.SHA256, d.Format, d.Platform, d.Name, d.Files, d.Images)
	if err != nil {
		return 0, err
	}
	d.ID, err = result.LastInsertId()
	return d.ID, err
}

func (s *Store) Disks() ([]*Disk, error) {
	rows, err := s.db.Query("SELECT id, path, sha256, format, platform, name, files, images FROM disk ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Disk
	for rows.Next() {
		d := &Disk{}
		if err := rows.Scan(&d.ID, &d.Path, &d.SHA256, &d.Format, &d.Platform, &d.Name, &d.Files, &d.Images); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Image is one picture. Entry is its path inside the disk image, or empty
// for a standalone file.
type Image struct {
	ID       int64
	DiskID   int64
	Source   string
	Entry    string
	Name     string
	Format   string
	Platform string
	Width    int
	Height   int
	Size     int
	SHA256   string
}

// AddImage records img with its original bytes, replacing any picture
// stored for the same source and entry.
func (s *Store) AddImage(img *Image, original []byte) (int64, error) {
	img.Size = len(original)
	img.SHA256 = Checksum(original)
	var disk sql.NullInt64
	if img.DiskID != 0 {
		disk.Int64, disk.Valid = img.DiskID, true
	}
	packed := s.enc.EncodeAll(original, nil)
	result, err := s.db.Exec("INSERT OR REPLACE INTO image (disk_id, source, entry, name, format, platform, width, height, size, sha256, original) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		disk, img.Source, img.Entry, img.Name, img.Format, img.Platform, img.Width, img.Height, img.Size, img.SHA256, packed)
	if err != nil {
		return 0, err
	}
	img.ID, err = result.LastInsertId()
	return img.ID, err
}

const imageColumns = "id, disk_id, source, entry, name, format, platform, width, height, size, sha256"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(r scanner) (*Image, error) {
	img := &Image{}
	var disk sql.NullInt64
	if err := r.Scan(&img.ID, &disk, &img.Source, &img.Entry, &img.Name, &img.Format, &img.Platform, &img.Width, &img.Height, &img.Size, &img.SHA256); err != nil {
		return nil, err
	}
	img.DiskID = disk.Int64
	return img, nil
}

func (s *Store) Image(id int64) (*Image, error) {
	img, err := scanImage(s.db.QueryRow("SELECT "+imageColumns+" FROM image WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("image %d: %w", id, ErrNotFound)
	}
	return img, err
}

// Original returns the bytes the picture was ingested from.
func (s *Store) Original(id int64) ([]byte, error) {
	var packed []byte
	var sha string
	switch err := s.db.QueryRow("SELECT original, sha256 FROM image WHERE id = ?", id).Scan(&packed, &sha); err {
	case sql.ErrNoRows:
		return nil, fmt.Errorf("image %d: %w", id, ErrNotFound)
	case nil:
	default:
		return nil, err
	}
	out, err := s.dec.DecodeAll(packed, nil)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", id, err)
	}
	if Checksum(out) != sha {
		return nil, fmt.Errorf("image %d: stored bytes do not match checksum", id)
	}
	return out, nil
}

// Query selects pictures. Name is a shell style pattern matched without
// regard to case; empty fields match everything.
type Query struct {
	Name   string
	Format string
	Source string
	Limit  int
}

func (s *Store) Search(q Query) ([]*Image, error) {
	var where []string
	var args []interface{}
	if q.Name != "" {
		where = append(where, "upper(name) GLOB upper(?)")
		args = append(args, q.Name)
	}
	if q.Format != "" {
		where = append(where, "format = ? COLLATE NOCASE")
		args = append(args, q.Format)
	}
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	sqlText := "SELECT " + imageColumns + " FROM image"
	if len(where) > 0 {
		sqlText += " WHERE " + strings.Join(where, " AND ")
	}
	sqlText += " ORDER BY source, entry"
	if q.Limit > 0 {
		sqlText += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.Query(sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// DupeGroup is a set of pictures with identical bytes.
type DupeGroup struct {
	SHA256 string
	Images []*Image
}

// Duplicates groups pictures stored more than once, largest groups first.
func (s *Store) Duplicates() ([]*DupeGroup, error) {
	rows, err := s.db.Query("SELECT " + imageColumns + " FROM image WHERE sha256 IN (SELECT sha256 FROM image GROUP BY sha256 HAVING count(*) > 1) ORDER BY sha256, source, entry")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DupeGroup
	var cur *DupeGroup
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		if cur == nil || cur.SHA256 != img.SHA256 {
			cur = &DupeGroup{SHA256: img.SHA256}
			out = append(out, cur)
		}
		cur.Images = append(cur.Images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Images) > len(out[j].Images)
	})
	return out, nil
}

type FormatCount struct {
	Format string
	Count  int
}

// Counts tallies stored pictures by format.
func (s *Store) Counts() ([]FormatCount, error) {
	rows, err := s.db.Query("SELECT format, count(*) FROM image GROUP BY format ORDER BY count(*) DESC, format")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FormatCount
	for rows.Next() {
		var c FormatCount
		if err := rows.Scan(&c.Format, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
