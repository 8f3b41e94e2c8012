package ingest

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	pipeerrors "github.com/postcode-lookup/pipeline/pkg/errors"
	"github.com/postcode-lookup/pipeline/pkg/models"
	"github.com/postcode-lookup/pipeline/pkg/postcode"
)

// NSPL releases suffix columns with release codes (ctry25cd, lad25cd). Each
// logical field lists the prefixes tried against the header, then an exact
// fallback name.
var nsplColumns = map[string]struct {
	prefixes []string
	fallback string
}{
	"country_code":        {prefixes: []string{"ctry"}, fallback: "ctry"},
	"region_code":         {prefixes: []string{"rgn"}, fallback: "rgn"},
	"local_authority":     {prefixes: []string{"lad", "laua"}, fallback: "laua"},
	"parliamentary_const": {prefixes: []string{"pcon"}, fallback: "pcon"},
	"ward_code":           {prefixes: []string{"wd", "ward"}, fallback: "ward"},
	"parish_code":         {prefixes: []string{"parish"}, fallback: "parish"},
}

// NSPL parses a National Statistics Postcode Lookup archive. The main CSV is
// picked by name, falling back to the largest CSV in the ZIP. The header row
// resolves release-versioned column names by prefix.
func NSPL(zipPath string, batchSize int, logger ectologger.Logger) BatchFunc[models.NSPLRecord] {
	validate := validator.New()

	return func(ctx context.Context, emit func(batch []models.NSPLRecord) error) error {
		zr, err := zip.OpenReader(zipPath)
		if err != nil {
			return pipeerrors.NewParseError(models.SourceNSPL, "failed to open archive", err).WithFile(zipPath)
		}
		defer zr.Close()

		mainCSV, err := findNSPLCSV(&zr.Reader)
		if err != nil {
			return err
		}

		log := logger.WithContext(ctx).WithField("source", models.SourceNSPL)
		log.WithField("file", mainCSV.Name).Info("Using NSPL CSV")

		rc, err := mainCSV.Open()
		if err != nil {
			return pipeerrors.NewParseError(models.SourceNSPL, "failed to open archive member", err).WithFile(mainCSV.Name)
		}
		defer rc.Close()

		reader := csv.NewReader(rc)
		reader.FieldsPerRecord = -1

		header, err := reader.Read()
		if err != nil {
			return pipeerrors.NewParseError(models.SourceNSPL, "missing header row", err).WithFile(mainCSV.Name)
		}

		index := indexHeader(header)
		resolved := resolveNSPLColumns(header)

		var total, skipped int64
		b := newBatcher(batchSize, emit)

		for {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return pipeerrors.NewParseError(models.SourceNSPL, "malformed CSV", err).WithFile(mainCSV.Name)
			}

			total++

			norm, normErr := postcode.Normalize(field(row, index, "pcds"))
			if normErr != nil {
				skipped++
				continue
			}

			doterm := field(row, index, "doterm")

			record := models.NSPLRecord{
				Postcode:           norm,
				PostcodeNoSpace:    postcode.NoSpace(norm),
				CountryCode:        optional(field(row, index, resolved["country_code"])),
				RegionCode:         optional(field(row, index, resolved["region_code"])),
				LocalAuthority:     optional(field(row, index, resolved["local_authority"])),
				ParliamentaryConst: optional(field(row, index, resolved["parliamentary_const"])),
				WardCode:           optional(field(row, index, resolved["ward_code"])),
				ParishCode:         optional(field(row, index, resolved["parish_code"])),
				DateIntroduced:     optional(field(row, index, "dointr")),
				DateTerminated:     optional(doterm),
				IsTerminated:       doterm != "",
			}

			if err := validate.Struct(record); err != nil {
				skipped++
				continue
			}

			if err := b.add(record); err != nil {
				return err
			}
		}

		if err := b.flush(); err != nil {
			return err
		}

		log.WithFields(map[string]any{
			"total":   total,
			"skipped": skipped,
		}).Info("NSPL parsing complete")
		return nil
	}
}

// findNSPLCSV picks the main data CSV: by name match first, then the largest
// CSV in the archive (the main NSPL file dwarfs the per-region splits).
func findNSPLCSV(zr *zip.Reader) (*zip.File, error) {
	var candidates []*zip.File
	var allCSVs []*zip.File

	for _, f := range zr.File {
		lower := strings.ToLower(f.Name)
		if !strings.HasSuffix(lower, ".csv") {
			continue
		}
		allCSVs = append(allCSVs, f)
		if strings.Contains(lower, "nspl") &&
			!strings.Contains(lower, "metadata") &&
			!strings.Contains(lower, "multi_csv") &&
			!strings.HasPrefix(f.Name, "__") {
			candidates = append(candidates, f)
		}
	}

	if len(candidates) == 0 {
		if len(allCSVs) == 0 {
			return nil, pipeerrors.NewParseError(models.SourceNSPL, "no CSV found in archive", nil)
		}
		candidates = allCSVs
	}

	largest := candidates[0]
	for _, f := range candidates[1:] {
		if f.UncompressedSize64 > largest.UncompressedSize64 {
			largest = f
		}
	}
	return largest, nil
}

func resolveNSPLColumns(header []string) map[string]string {
	resolved := make(map[string]string, len(nsplColumns))

	for name, spec := range nsplColumns {
		resolved[name] = spec.fallback

		exact := false
		for _, h := range header {
			if h == spec.fallback {
				exact = true
				break
			}
		}
		if exact {
			continue
		}

		for _, prefix := range spec.prefixes {
			for _, h := range header {
				if strings.HasPrefix(h, prefix) {
					resolved[name] = h
					break
				}
			}
			if resolved[name] != spec.fallback {
				break
			}
		}
	}

	return resolved
}

func indexHeader(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	return index
}

func field(row []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
