// Package models holds the record types that flow from the parsers into the
// load engine, plus the rows read back for status reporting.
package models

import (
	"database/sql"
	"time"
)

// Source names, used as data_sources.source_name keys and log fields.
const (
	SourceCodePoint = "codepoint"
	SourceNSPL      = "nspl"
	SourceOSM       = "osm"
)

// Data source lifecycle states.
const (
	StatusPending     = "pending"
	StatusDownloading = "downloading"
	StatusIngesting   = "ingesting"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// CodePointRecord is one postcode centroid parsed from the centroid source.
type CodePointRecord struct {
	Postcode          string  `validate:"required,max=10"`
	PostcodeNoSpace   string  `validate:"required,max=10"`
	Easting           int     `validate:"gte=0,lte=800000"`
	Northing          int     `validate:"gte=0,lte=1400000"`
	Latitude          float64 `validate:"gte=-90,lte=90"`
	Longitude         float64 `validate:"gte=-180,lte=180"`
	PositionalQuality int     `validate:"gte=0"`
	CountryCode       string  `validate:"max=10"`
}

// NSPLRecord is one postcode's administrative hierarchy parsed from the
// hierarchy source. Nil pointers map to NULL columns.
type NSPLRecord struct {
	Postcode           string `validate:"required,max=10"`
	PostcodeNoSpace    string `validate:"required,max=10"`
	CountryCode        *string
	RegionCode         *string
	LocalAuthority     *string
	ParliamentaryConst *string
	WardCode           *string
	ParishCode         *string
	DateIntroduced     *string
	DateTerminated     *string
	IsTerminated       bool
}

// OSMAddressRecord is one tagged address element parsed from the address
// source. PostcodeNorm is nil when the raw postcode fails normalization.
type OSMAddressRecord struct {
	OsmID        int64  `validate:"required"`
	OsmType      string `validate:"required,oneof=node way"`
	PostcodeRaw  *string
	PostcodeNorm *string
	HouseNumber  *string
	HouseName    *string
	Flat         *string
	Street       *string
	Suburb       *string
	City         *string
	County       *string
	Latitude     float64 `validate:"gte=-90,lte=90"`
	Longitude    float64 `validate:"gte=-180,lte=180"`
}

// DataSource is a row of the data_sources tracking table.
type DataSource struct {
	ID           int64          `db:"id"`
	SourceName   string         `db:"source_name"`
	FileHash     sql.NullString `db:"file_hash"`
	RecordCount  sql.NullInt64  `db:"record_count"`
	StartedAt    sql.NullTime   `db:"started_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
	Status       string         `db:"status"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// AddressStats aggregates the addresses table for status reporting.
type AddressStats struct {
	Total         int64   `db:"total"`
	Linked        int64   `db:"linked"`
	Complete      int64   `db:"complete"`
	Duplicates    int64   `db:"duplicates"`
	AvgConfidence float64 `db:"avg_confidence"`
}

// LinkedRate is the fraction of addresses holding a postcode link.
func (s AddressStats) LinkedRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Linked) / float64(s.Total)
}
