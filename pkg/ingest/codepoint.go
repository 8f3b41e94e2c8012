package ingest

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	pipeerrors "github.com/postcode-lookup/pipeline/pkg/errors"
	"github.com/postcode-lookup/pipeline/pkg/models"
	"github.com/postcode-lookup/pipeline/pkg/postcode"
)

// CodePoint parses a Code-Point Open archive. Each CSV inside the ZIP covers
// one postcode area and carries headerless rows with fixed column positions:
// postcode, positional quality, easting, northing, country code.
func CodePoint(zipPath string, batchSize int, transformer Transformer, logger ectologger.Logger) BatchFunc[models.CodePointRecord] {
	validate := validator.New()

	return func(ctx context.Context, emit func(batch []models.CodePointRecord) error) error {
		zr, err := zip.OpenReader(zipPath)
		if err != nil {
			return pipeerrors.NewParseError(models.SourceCodePoint, "failed to open archive", err).WithFile(zipPath)
		}
		defer zr.Close()

		var total, skipped int64
		b := newBatcher(batchSize, emit)

		names := make([]string, 0, len(zr.File))
		byName := make(map[string]*zip.File, len(zr.File))
		for _, f := range zr.File {
			name := f.Name
			if !strings.HasSuffix(name, ".csv") || strings.HasPrefix(name, "__") || strings.Contains(name, "/Doc/") {
				continue
			}
			names = append(names, name)
			byName[name] = f
		}
		sort.Strings(names)

		for _, name := range names {
			t, s, err := parseCodePointCSV(byName[name], transformer, validate, b)
			if err != nil {
				return err
			}
			total += t
			skipped += s
		}

		if err := b.flush(); err != nil {
			return err
		}

		logger.WithContext(ctx).WithFields(map[string]any{
			"source":  models.SourceCodePoint,
			"total":   total,
			"skipped": skipped,
		}).Info("Code-Point parsing complete")
		return nil
	}
}

func parseCodePointCSV(f *zip.File, transformer Transformer, validate *validator.Validate, b *batcher[models.CodePointRecord]) (total, skipped int64, err error) {
	rc, err := f.Open()
	if err != nil {
		return 0, 0, pipeerrors.NewParseError(models.SourceCodePoint, "failed to open archive member", err).WithFile(f.Name)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, skipped, pipeerrors.NewParseError(models.SourceCodePoint, "malformed CSV", err).WithFile(f.Name)
		}

		total++

		if len(row) < 5 {
			skipped++
			continue
		}

		norm, normErr := postcode.Normalize(row[0])
		if normErr != nil {
			skipped++
			continue
		}

		easting, eErr := strconv.Atoi(strings.TrimSpace(row[2]))
		northing, nErr := strconv.Atoi(strings.TrimSpace(row[3]))
		if eErr != nil || nErr != nil {
			skipped++
			continue
		}

		lat, lon, convErr := transformer.ToWGS84(float64(easting), float64(northing))
		if convErr != nil {
			skipped++
			continue
		}

		quality := 0
		if q := strings.TrimSpace(row[1]); q != "" {
			quality, _ = strconv.Atoi(q)
		}

		record := models.CodePointRecord{
			Postcode:          norm,
			PostcodeNoSpace:   postcode.NoSpace(norm),
			Easting:           easting,
			Northing:          northing,
			Latitude:          lat,
			Longitude:         lon,
			PositionalQuality: quality,
			CountryCode:       strings.TrimSpace(row[4]),
		}

		if err := validate.Struct(record); err != nil {
			skipped++
			continue
		}

		if err := b.add(record); err != nil {
			return total, skipped, err
		}
	}

	return total, skipped, nil
}
