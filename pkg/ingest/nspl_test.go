package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nsplHeader = "pcds,ctry25cd,rgn25cd,lad25cd,pcon25cd,wd25cd,parish25cd,dointr,doterm\n"

func TestNSPLParsesRecords(t *testing.T) {
	path := writeZip(t, map[string]string{
		"Data/NSPL_AUG_2025_UK.csv": nsplHeader +
			"\"SW1A 1AA\",E92000001,E12000007,E09000033,E14001172,E05013806,,198001,\n" +
			"\"M1 1AE\",E92000001,E12000002,E08000003,E14001045,E05011376,,199106,202303\n",
	})

	batches := collect(t, NSPL(path, 100, testLogger()))

	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)

	first := batches[0][0]
	assert.Equal(t, "SW1A 1AA", first.Postcode)
	assert.Equal(t, "SW1A1AA", first.PostcodeNoSpace)
	require.NotNil(t, first.CountryCode)
	assert.Equal(t, "E92000001", *first.CountryCode)
	require.NotNil(t, first.RegionCode)
	assert.Equal(t, "E12000007", *first.RegionCode)
	assert.Nil(t, first.ParishCode)
	require.NotNil(t, first.DateIntroduced)
	assert.Equal(t, "198001", *first.DateIntroduced)
	assert.Nil(t, first.DateTerminated)
	assert.False(t, first.IsTerminated)

	second := batches[0][1]
	assert.True(t, second.IsTerminated)
	require.NotNil(t, second.DateTerminated)
	assert.Equal(t, "202303", *second.DateTerminated)
}

func TestNSPLLegacyColumnNames(t *testing.T) {
	path := writeZip(t, map[string]string{
		"Data/NSPL_FEB_2020_UK.csv": "pcds,ctry,rgn,laua,pcon,ward,parish,dointr,doterm\n" +
			"\"EC1A 1BB\",E92000001,E12000007,E09000001,E14000639,E05009288,,198001,\n",
	})

	batches := collect(t, NSPL(path, 100, testLogger()))

	require.Len(t, batches, 1)
	record := batches[0][0]
	require.NotNil(t, record.LocalAuthority)
	assert.Equal(t, "E09000001", *record.LocalAuthority)
	require.NotNil(t, record.WardCode)
	assert.Equal(t, "E05009288", *record.WardCode)
}

func TestNSPLSkipsInvalidPostcodes(t *testing.T) {
	path := writeZip(t, map[string]string{
		"Data/NSPL_AUG_2025_UK.csv": nsplHeader +
			"\"SW1A 1AA\",E92000001,,,,,,198001,\n" +
			"\"BOGUS\",E92000001,,,,,,198001,\n" +
			",E92000001,,,,,,198001,\n",
	})

	batches := collect(t, NSPL(path, 100, testLogger()))

	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 1)
}

func TestNSPLPicksLargestCandidate(t *testing.T) {
	small := nsplHeader + "\"SW1A 1AA\",E92000001,,,,,,198001,\n"
	large := nsplHeader +
		"\"M1 1AE\",E92000001,,,,,,198001,\n" +
		"\"EC1A 1BB\",E92000001,,,,,,198001,\n" +
		"\"W1A 0AX\",E92000001,,,,,,198001,\n"

	path := writeZip(t, map[string]string{
		"Data/NSPL_AUG_2025_region1.csv": small,
		"Data/NSPL_AUG_2025_UK.csv":      large,
		"Doc/NSPL_metadata.csv":          "field,description\n",
	})

	batches := collect(t, NSPL(path, 100, testLogger()))

	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
}

func TestNSPLFallsBackToLargestCSV(t *testing.T) {
	path := writeZip(t, map[string]string{
		"data.csv": nsplHeader + "\"SW1A 1AA\",E92000001,,,,,,198001,\n",
	})

	batches := collect(t, NSPL(path, 100, testLogger()))

	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 1)
}

func TestResolveNSPLColumns(t *testing.T) {
	header := strings.Split("pcds,ctry25cd,rgn25cd,lad25cd,pcon25cd,wd25cd,parish25cd,dointr,doterm", ",")
	resolved := resolveNSPLColumns(header)

	assert.Equal(t, "ctry25cd", resolved["country_code"])
	assert.Equal(t, "rgn25cd", resolved["region_code"])
	assert.Equal(t, "lad25cd", resolved["local_authority"])
	assert.Equal(t, "pcon25cd", resolved["parliamentary_const"])
	assert.Equal(t, "wd25cd", resolved["ward_code"])
	assert.Equal(t, "parish25cd", resolved["parish_code"])
}

func TestResolveNSPLColumnsPrefersExactNames(t *testing.T) {
	header := strings.Split("pcds,ctry,rgn,laua,pcon,ward,parish,dointr,doterm", ",")
	resolved := resolveNSPLColumns(header)

	assert.Equal(t, "ctry", resolved["country_code"])
	assert.Equal(t, "laua", resolved["local_authority"])
	assert.Equal(t, "ward", resolved["ward_code"])
}
