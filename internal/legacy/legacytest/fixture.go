// Package legacytest builds legacy store files in the three historical shapes
// for tests.
package legacytest

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Shape selects which historical schema the fixture is created with
type Shape int

const (
	// PreNormalization has no home column on locations or items
	PreNormalization Shape = iota
	// DirectFK links items to one label and homes to one policy by column
	DirectFK
	// JoinTables links items and labels, homes and policies through Z_ join tables
	JoinTables
)

func (s Shape) String() string {
	switch s {
	case PreNormalization:
		return "pre_normalization"
	case DirectFK:
		return "direct_fk"
	case JoinTables:
		return "join_tables"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Fixture is a writable legacy store under construction
type Fixture struct {
	t     testing.TB
	db    *sql.DB
	shape Shape
	Path  string
}

// New creates dir/name with the tables of shape
func New(t testing.TB, dir, name string, shape Shape) *Fixture {
	t.Helper()
	path := filepath.Join(dir, name)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	f := &Fixture{t: t, db: db, shape: shape, Path: path}
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range schema(shape) {
		f.Exec(stmt)
	}
	return f
}

// Close flushes the fixture so a reader can open the file
func (f *Fixture) Close() {
	require.NoError(f.t, f.db.Close())
}

// Exec runs a statement against the fixture
func (f *Fixture) Exec(query string, args ...interface{}) sql.Result {
	f.t.Helper()
	res, err := f.db.Exec(query, args...)
	require.NoError(f.t, err, query)
	return res
}

func (f *Fixture) insert(table string, values map[string]interface{}) int64 {
	f.t.Helper()
	columns := make([]string, 0, len(values))
	marks := make([]string, 0, len(values))
	args := make([]interface{}, 0, len(values))
	for column, v := range values {
		columns = append(columns, column)
		marks = append(marks, "?")
		args = append(args, v)
	}
	res := f.Exec(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(marks, ", ")), args...)
	id, err := res.LastInsertId()
	require.NoError(f.t, err)
	return id
}

// HasHomeLinks reports whether locations and items carry a ZHOME column
func (f *Fixture) HasHomeLinks() bool {
	return f.shape != PreNormalization
}

// AddLabel inserts a label with an archived color blob (nil for none)
func (f *Fixture) AddLabel(name string, color []byte) int64 {
	id := uuid.New()
	return f.insert("ZINVENTORYLABEL", map[string]interface{}{
		"Z_ENT": 7, "Z_OPT": 1, "ZID": id[:], "ZNAME": name, "ZDESC": name + " items", "ZCOLOR": color, "ZEMOJI": "📦",
	})
}

// AddHome inserts a home
func (f *Fixture) AddHome(name, address1 string) int64 {
	id := uuid.New()
	values := map[string]interface{}{
		"Z_ENT": 3, "Z_OPT": 1, "ZID": id[:], "ZNAME": name, "ZADDRESS1": address1,
		"ZCITY": "Springfield", "ZPURCHASEPRICE": 350000.5, "ZPURCHASEDATE": 600000000.0,
	}
	if f.shape != PreNormalization {
		values["ZISPRIMARY"] = 1
		values["ZCOLORNAME"] = "green"
	}
	return f.insert("ZHOME", values)
}

// AddPolicy inserts an insurance policy
func (f *Fixture) AddPolicy(provider string, deductible float64) int64 {
	id := uuid.New()
	return f.insert("ZINSURANCEPOLICY", map[string]interface{}{
		"Z_ENT": 4, "Z_OPT": 1, "ZID": id[:], "ZPROVIDERNAME": provider, "ZPOLICYNUMBER": "P-" + provider,
		"ZDEDUCTIBLEAMOUNT": deductible, "ZLIABILITYCOVERAGEAMOUNT": 300000,
		"ZSTARTDATE": 700000000.0, "ZENDDATE": 731536000.0,
	})
}

// AddLocation inserts a location, linked to home when the shape supports it and home is not 0
func (f *Fixture) AddLocation(name string, home int64) int64 {
	id := uuid.New()
	values := map[string]interface{}{
		"Z_ENT": 6, "Z_OPT": 1, "ZID": id[:], "ZNAME": name, "ZDESC": "", "ZSFSYMBOLNAME": "sofa",
	}
	if f.HasHomeLinks() && home != 0 {
		values["ZHOME"] = home
	}
	return f.insert("ZINVENTORYLOCATION", values)
}

// Item describes a legacy item row
type Item struct {
	Title    string
	Price    interface{}
	Location int64
	Home     int64
	// Photos is the raw ZSECONDARYPHOTOURLS blob
	Photos []byte
	// ID overrides the stored identifier blob; empty stores a fresh one
	ID []byte
	// NoID stores NULL in ZID
	NoID bool
}

// AddItem inserts an item
func (f *Fixture) AddItem(item Item) int64 {
	values := map[string]interface{}{
		"Z_ENT": 5, "Z_OPT": 1, "ZTITLE": item.Title, "ZQUANTITYINT": 1, "ZQUANTITYSTRING": "1",
		"ZPRICE": item.Price, "ZSECONDARYPHOTOURLS": item.Photos, "ZCREATEDAT": 726000000.25,
	}
	switch {
	case item.NoID:
	case len(item.ID) > 0:
		values["ZID"] = item.ID
	default:
		id := uuid.New()
		values["ZID"] = id[:]
	}
	if item.Location != 0 {
		values["ZLOCATION"] = item.Location
	}
	if f.HasHomeLinks() && item.Home != 0 {
		values["ZHOME"] = item.Home
	}
	return f.insert("ZINVENTORYITEM", values)
}

// LinkItemLabel links an item to a label in the shape's physical form
func (f *Fixture) LinkItemLabel(item, label int64) {
	switch f.shape {
	case JoinTables:
		f.Exec("INSERT INTO Z_5LABELS (Z_5INVENTORYITEMS, Z_7LABELS) VALUES (?, ?)", item, label)
	default:
		f.Exec("UPDATE ZINVENTORYITEM SET ZLABEL = ? WHERE Z_PK = ?", label, item)
	}
}

// LinkHomePolicy links a home to a policy in the shape's physical form
func (f *Fixture) LinkHomePolicy(home, policy int64) {
	switch f.shape {
	case JoinTables:
		f.Exec("INSERT INTO Z_3INSURANCEPOLICIES (Z_3HOMES, Z_4INSURANCEPOLICIES) VALUES (?, ?)", home, policy)
	default:
		f.Exec("UPDATE ZHOME SET ZINSURANCEPOLICY = ? WHERE Z_PK = ?", policy, home)
	}
}

func schema(shape Shape) []string {
	homeColumns := []string{
		"Z_PK INTEGER PRIMARY KEY", "Z_ENT INTEGER", "Z_OPT INTEGER", "ZID BLOB",
		"ZNAME VARCHAR", "ZADDRESS1 VARCHAR", "ZADDRESS2 VARCHAR", "ZCITY VARCHAR", "ZSTATE VARCHAR",
		"ZZIP VARCHAR", "ZCOUNTRY VARCHAR", "ZPURCHASEDATE TIMESTAMP", "ZPURCHASEPRICE DECIMAL",
		"ZIMAGEURL VARCHAR", "ZSECONDARYPHOTOURLS BLOB",
	}
	locationColumns := []string{
		"Z_PK INTEGER PRIMARY KEY", "Z_ENT INTEGER", "Z_OPT INTEGER", "ZID BLOB",
		"ZNAME VARCHAR", "ZDESC VARCHAR", "ZSFSYMBOLNAME VARCHAR", "ZIMAGEURL VARCHAR", "ZSECONDARYPHOTOURLS BLOB",
	}
	itemColumns := []string{
		"Z_PK INTEGER PRIMARY KEY", "Z_ENT INTEGER", "Z_OPT INTEGER", "ZID BLOB",
		"ZTITLE VARCHAR", "ZQUANTITYSTRING VARCHAR", "ZQUANTITYINT INTEGER", "ZDESC VARCHAR",
		"ZSERIAL VARCHAR", "ZMODEL VARCHAR", "ZMAKE VARCHAR", "ZPRICE DECIMAL", "ZINSURED INTEGER",
		"ZASSETID VARCHAR", "ZNOTES VARCHAR", "ZIMAGEURL VARCHAR", "ZSECONDARYPHOTOURLS BLOB",
		"ZHASUSEDAI INTEGER", "ZCREATEDAT TIMESTAMP", "ZPURCHASEDATE TIMESTAMP", "ZLOCATION INTEGER",
	}

	if shape != PreNormalization {
		homeColumns = append(homeColumns, "ZISPRIMARY INTEGER", "ZCOLORNAME VARCHAR")
		locationColumns = append(locationColumns, "ZHOME INTEGER")
		itemColumns = append(itemColumns,
			"ZHOME INTEGER", "ZWARRANTYEXPIRATIONDATE TIMESTAMP", "ZPURCHASELOCATION VARCHAR",
			"ZCONDITION VARCHAR", "ZHASWARRANTY INTEGER", "ZATTACHMENTS BLOB",
			"ZDIMENSIONLENGTH VARCHAR", "ZDIMENSIONWIDTH VARCHAR", "ZDIMENSIONHEIGHT VARCHAR",
			"ZDIMENSIONUNIT VARCHAR", "ZWEIGHTVALUE DECIMAL", "ZWEIGHTUNIT VARCHAR", "ZCOLOR VARCHAR",
			"ZSTORAGEREQUIREMENTS VARCHAR", "ZISFRAGILE INTEGER", "ZMOVINGPRIORITY INTEGER",
			"ZROOMDESTINATION VARCHAR", "ZREPLACEMENTCOST DECIMAL", "ZDEPRECIATIONRATE DECIMAL",
		)
	}
	if shape != JoinTables {
		homeColumns = append(homeColumns, "ZINSURANCEPOLICY INTEGER")
		itemColumns = append(itemColumns, "ZLABEL INTEGER")
	}

	stmts := []string{
		"CREATE TABLE Z_PRIMARYKEY (Z_ENT INTEGER PRIMARY KEY, Z_NAME VARCHAR, Z_SUPER INTEGER, Z_MAX INTEGER)",
		"CREATE TABLE Z_METADATA (Z_VERSION INTEGER PRIMARY KEY, Z_UUID VARCHAR(255), Z_PLIST BLOB)",
		"CREATE TABLE ZHOME (" + strings.Join(homeColumns, ", ") + ")",
		"CREATE TABLE ZINSURANCEPOLICY (Z_PK INTEGER PRIMARY KEY, Z_ENT INTEGER, Z_OPT INTEGER, ZID BLOB, " +
			"ZPROVIDERNAME VARCHAR, ZPOLICYNUMBER VARCHAR, ZDEDUCTIBLEAMOUNT DECIMAL, ZDWELLINGCOVERAGEAMOUNT DECIMAL, " +
			"ZPERSONALPROPERTYCOVERAGEAMOUNT DECIMAL, ZLOSSOFUSECOVERAGEAMOUNT DECIMAL, ZLIABILITYCOVERAGEAMOUNT DECIMAL, " +
			"ZMEDICALPAYMENTSCOVERAGEAMOUNT DECIMAL, ZSTARTDATE TIMESTAMP, ZENDDATE TIMESTAMP)",
		"CREATE TABLE ZINVENTORYLOCATION (" + strings.Join(locationColumns, ", ") + ")",
		"CREATE TABLE ZINVENTORYITEM (" + strings.Join(itemColumns, ", ") + ")",
		"CREATE TABLE ZINVENTORYLABEL (Z_PK INTEGER PRIMARY KEY, Z_ENT INTEGER, Z_OPT INTEGER, ZID BLOB, " +
			"ZNAME VARCHAR, ZDESC VARCHAR, ZCOLOR BLOB, ZEMOJI VARCHAR)",
	}
	if shape == JoinTables {
		stmts = append(stmts,
			"CREATE TABLE Z_5LABELS (Z_5INVENTORYITEMS INTEGER, Z_7LABELS INTEGER, PRIMARY KEY (Z_5INVENTORYITEMS, Z_7LABELS))",
			"CREATE TABLE Z_3INSURANCEPOLICIES (Z_3HOMES INTEGER, Z_4INSURANCEPOLICIES INTEGER, PRIMARY KEY (Z_3HOMES, Z_4INSURANCEPOLICIES))",
		)
	}
	return stmts
}
