package dataset

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"tower-api/internal/towers"
)

func writeGz(t *testing.T, dir, name, body string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

const usaCSV = `radio,mcc,net,area,cell,unit,lon,lat,range,samples
LTE,310,260,1,100,0,-74.0,40.0,1000,5
lte,310,260,1,101,0,-74.0,40.01,1000,3
GSM,310,410,2,200,0,-74.0,41.0,500,9
UMTS,310,410,2,201,0,,40.5,,1
`

func TestFileSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeGz(t, dir, "USA.csv.gz", usaCSV)
	src := NewFileSource(dir)
	rows, err := src.Load(context.Background(), "USA")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4 (malformed rows are kept)", len(rows))
	}
	if rows[0] != (towers.TowerRecord{Lat: 40, Lon: -74, Radio: towers.LTE, Range: 1000}) {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].Radio != towers.LTE || rows[2].Radio != towers.GSM {
		t.Fatalf("radio parsing: %+v", rows[:3])
	}
	if !math.IsNaN(float64(rows[3].Lon)) || !math.IsNaN(float64(rows[3].Range)) {
		t.Fatalf("empty cells should load as NaN: %+v", rows[3])
	}
}

func TestFileSourceCaseInsensitiveName(t *testing.T) {
	dir := t.TempDir()
	writeGz(t, dir, "uzb.csv.gz", usaCSV)
	rows, err := NewFileSource(dir).Load(context.Background(), "UZB")
	if err != nil || len(rows) != 4 {
		t.Fatalf("Load = %d rows, %v", len(rows), err)
	}
}

func TestFileSourceNotFound(t *testing.T) {
	dir := t.TempDir()
	writeGz(t, dir, "USA.csv.gz", usaCSV)
	writeGz(t, dir, "DEU.csv.gz", usaCSV)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileSource(dir).Load(context.Background(), "ZZZ")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if strings.Join(nf.Available, ",") != "DEU,USA" {
		t.Fatalf("Available = %v", nf.Available)
	}
}

func TestFileSourceMissingDirIsLoadError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	_, err := NewFileSource(dir).Load(context.Background(), "USA")
	if !errors.Is(err, ErrLoad) || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrLoad for a missing towers directory", err)
	}
	var le *LoadError
	if !errors.As(err, &le) || le.Path != dir {
		t.Fatalf("LoadError = %+v", le)
	}
}

func TestFileSourceLoadErrors(t *testing.T) {
	cases := map[string]string{
		"missing column": "radio,lon,lat\nLTE,1,2\n",
		"bad number":     "radio,lon,lat,range\nLTE,abc,2,100\n",
		"empty":          "",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeGz(t, dir, "USA.csv.gz", body)
			_, err := NewFileSource(dir).Load(context.Background(), "USA")
			if !errors.Is(err, ErrLoad) {
				t.Fatalf("err = %v, want ErrLoad", err)
			}
		})
	}
}

func TestFileSourceNotGzip(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "USA.csv.gz"), []byte("radio,lat\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileSource(dir).Load(context.Background(), "USA")
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("err = %v, want ErrLoad", err)
	}
}

func TestReadTowersCSVLineNumber(t *testing.T) {
	_, err := ReadTowersCSV(context.Background(), strings.NewReader("lat,lon,radio,range\n1,2,LTE,3\n1,2,LTE,x\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("err = %v, want line 3 context", err)
	}
}
