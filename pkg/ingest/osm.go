package ingest

import (
	"context"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/qedus/osmpbf"

	"github.com/postcode-lookup/pipeline/pkg/address"
	pipeerrors "github.com/postcode-lookup/pipeline/pkg/errors"
	"github.com/postcode-lookup/pipeline/pkg/models"
	"github.com/postcode-lookup/pipeline/pkg/postcode"
)

// Column width limits from the addresses schema. Longer values are clipped.
const (
	maxPostcodeRaw = 20
	maxShortField  = 50
	maxMedField    = 100
	maxLongField   = 200
)

// OSM parses an OpenStreetMap PBF extract, emitting every node and way that
// carries at least one addr:* tag. PBF files order nodes before ways, so the
// file is decoded twice: the first pass records which nodes the tagged ways
// reference, the second caches those locations, emits node addresses inline,
// then emits way addresses at the mean of their vertices.
func OSM(pbfPath string, batchSize int, logger ectologger.Logger) BatchFunc[models.OSMAddressRecord] {
	validate := validator.New()

	return func(ctx context.Context, emit func(batch []models.OSMAddressRecord) error) error {
		if _, err := os.Stat(pbfPath); err != nil {
			return pipeerrors.NewParseError(models.SourceOSM, "extract not found", err).WithFile(pbfPath)
		}

		needed, err := collectWayNodeIDs(pbfPath)
		if err != nil {
			return err
		}

		var total, skipped int64
		locations := make(map[int64][2]float64, len(needed))
		b := newBatcher(batchSize, emit)

		err = decodePBF(pbfPath, func(v any) error {
			switch v := v.(type) {
			case *osmpbf.Node:
				if _, ok := needed[v.ID]; ok {
					locations[v.ID] = [2]float64{v.Lat, v.Lon}
				}
				if !hasAddressTags(v.Tags) {
					return nil
				}
				total++
				record := newAddressRecord("node", v.ID, v.Tags, v.Lat, v.Lon)
				if validate.Struct(record) != nil {
					skipped++
					return nil
				}
				return b.add(record)

			case *osmpbf.Way:
				if !hasAddressTags(v.Tags) {
					return nil
				}
				total++
				lat, lon, ok := wayCentroid(v.NodeIDs, locations)
				if !ok {
					skipped++
					return nil
				}
				record := newAddressRecord("way", v.ID, v.Tags, lat, lon)
				if validate.Struct(record) != nil {
					skipped++
					return nil
				}
				return b.add(record)
			}

			// Relations carry multipolygon geometry the pipeline does not resolve.
			return nil
		})
		if err != nil {
			return err
		}

		if err := b.flush(); err != nil {
			return err
		}

		logger.WithContext(ctx).WithFields(map[string]any{
			"source":  models.SourceOSM,
			"total":   total,
			"skipped": skipped,
		}).Info("OSM parsing complete")
		return nil
	}
}

// collectWayNodeIDs returns the IDs of every node referenced by an
// addr-tagged way.
func collectWayNodeIDs(pbfPath string) (map[int64]struct{}, error) {
	needed := make(map[int64]struct{})

	err := decodePBF(pbfPath, func(v any) error {
		if w, ok := v.(*osmpbf.Way); ok && hasAddressTags(w.Tags) {
			for _, id := range w.NodeIDs {
				needed[id] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return needed, nil
}

func decodePBF(pbfPath string, handle func(v any) error) error {
	f, err := os.Open(pbfPath)
	if err != nil {
		return pipeerrors.NewParseError(models.SourceOSM, "failed to open extract", err).WithFile(pbfPath)
	}
	defer f.Close()

	d := osmpbf.NewDecoder(f)
	d.SetBufferSize(osmpbf.MaxBlobSize)
	if err := d.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return pipeerrors.NewParseError(models.SourceOSM, "failed to start decoder", err).WithFile(pbfPath)
	}

	for {
		v, err := d.Decode()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return pipeerrors.NewParseError(models.SourceOSM, "failed to decode extract", err).WithFile(pbfPath)
		}
		if err := handle(v); err != nil {
			// Keep receiving so the decode workers are not left blocked on
			// their output channels; closing the file errors them out.
			go func() {
				for {
					if _, derr := d.Decode(); derr != nil {
						return
					}
				}
			}()
			return err
		}
	}
}

func hasAddressTags(tags map[string]string) bool {
	for k := range tags {
		if strings.HasPrefix(k, "addr:") {
			return true
		}
	}
	return false
}

func wayCentroid(nodeIDs []int64, locations map[int64][2]float64) (lat, lon float64, ok bool) {
	var latSum, lonSum float64
	count := 0

	for _, id := range nodeIDs {
		loc, found := locations[id]
		if !found {
			continue
		}
		latSum += loc[0]
		lonSum += loc[1]
		count++
	}

	if count == 0 {
		return 0, 0, false
	}
	return latSum / float64(count), lonSum / float64(count), true
}

func newAddressRecord(osmType string, osmID int64, tags map[string]string, lat, lon float64) models.OSMAddressRecord {
	rawPostcode := strings.TrimSpace(tags["addr:postcode"])

	var normPostcode *string
	if rawPostcode != "" {
		if norm, err := postcode.Normalize(rawPostcode); err == nil {
			normPostcode = &norm
		}
	}

	flat := tags["addr:flats"]
	if flat == "" {
		flat = tags["addr:unit"]
	}

	return models.OSMAddressRecord{
		OsmID:        osmID,
		OsmType:      osmType,
		PostcodeRaw:  clipOptional(rawPostcode, maxPostcodeRaw),
		PostcodeNorm: normPostcode,
		HouseNumber:  clipOptional(tags["addr:housenumber"], maxShortField),
		HouseName:    clipOptional(tags["addr:housename"], maxLongField),
		Flat:         clipOptional(flat, maxShortField),
		Street:       clipOptional(address.NormalizeStreet(tags["addr:street"]), maxLongField),
		Suburb:       clipOptional(tags["addr:suburb"], maxMedField),
		City:         clipOptional(address.NormalizeCity(tags["addr:city"]), maxMedField),
		County:       clipOptional(tags["addr:county"], maxMedField),
		Latitude:     lat,
		Longitude:    lon,
	}
}

// clipOptional trims and clips to max characters. varchar(n) counts
// characters, and clipping bytes could split a rune into invalid UTF-8.
func clipOptional(s string, max int) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) > max {
		if runes := []rune(s); len(runes) > max {
			s = string(runes[:max])
		}
	}
	return &s
}
