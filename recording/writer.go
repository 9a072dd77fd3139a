// Package recording stores the trajectory of a search into SQLite.
package recording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder buffers flat structs and writes them into tables.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of the sample.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry of a table created before.
	InsertData(tableName string, entry any)

	// ListTables returns the names of the tables created.
	ListTables() []string

	// Flush writes every buffered entry in one transaction.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

type table struct {
	structType reflect.Type
	entries    []any
}

// SQLiteWriter is a DataRecorder backed by a SQLite file.
type SQLiteWriter struct {
	*sql.DB

	lock       sync.Mutex
	dbName     string
	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
}

// NewSQLiteWriter creates a writer. The database file is created by Init as
// path + ".sqlite3". An empty path gets a unique name.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{
		dbName:    path,
		batchSize: 10000,
		tables:    make(map[string]*table),
	}
}

// New creates a writer, opens the database and flushes it when the program
// exits through atexit. It panics if the database cannot be created.
func New(path string) DataRecorder {
	w, err := Create(path)
	if err != nil {
		panic(err)
	}

	return w
}

// Create is New, but reports a database that cannot be created as an error.
func Create(path string) (DataRecorder, error) {
	w := NewSQLiteWriter(path)
	if err := w.Open(); err != nil {
		return nil, err
	}

	atexit.Register(func() { _ = w.Close() })

	return w, nil
}

// NewWithDB creates a writer on an open database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := NewSQLiteWriter("")
	w.DB = db

	return w
}

// Init creates the database file. It panics if the file already exists.
func (w *SQLiteWriter) Init() {
	if err := w.Open(); err != nil {
		panic(err)
	}
}

// Open creates the database file. It fails if the file already exists.
func (w *SQLiteWriter) Open() error {
	if w.dbName == "" {
		w.dbName = "meshplace_trajectory_" + xid.New().String()
	}

	filename := w.Filename()
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return err
	}

	w.DB = db

	return nil
}

// Filename returns the name of the database file.
func (w *SQLiteWriter) Filename() string {
	if strings.HasSuffix(w.dbName, ".sqlite3") {
		return w.dbName
	}

	return w.dbName + ".sqlite3"
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t.Kind() != reflect.Struct {
		return errors.New("entry must be a struct")
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("field %s cannot be stored", field.Name)
		}
	}

	return nil
}

// CreateTable creates a table. It panics if the sample has a field that is
// not a plain number, bool or string.
func (w *SQLiteWriter) CreateTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	w.mustExecute(`CREATE TABLE IF NOT EXISTS ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`)

	if _, ok := w.tables[tableName]; !ok {
		w.tableOrder = append(w.tableOrder, tableName)
	}

	w.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
}

// InsertData buffers an entry. A full batch is flushed right away.
func (w *SQLiteWriter) InsertData(tableName string, entry any) {
	w.lock.Lock()
	defer w.lock.Unlock()

	t, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Sprintf("entry of type %T does not match table %s",
			entry, tableName))
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.flush()
	}
}

// ListTables returns the tables in creation order.
func (w *SQLiteWriter) ListTables() []string {
	w.lock.Lock()
	defer w.lock.Unlock()

	out := make([]string, len(w.tableOrder))
	copy(out, w.tableOrder)

	return out
}

// Flush writes every buffered entry.
func (w *SQLiteWriter) Flush() {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.flush()
}

func (w *SQLiteWriter) flush() {
	if w.entryCount == 0 {
		return
	}

	tx, err := w.Begin()
	if err != nil {
		panic(err)
	}

	for _, name := range w.tableOrder {
		t := w.tables[name]
		if len(t.entries) == 0 {
			continue
		}

		stmt, err := tx.Prepare(insertStatement(name, t.entries[0]))
		if err != nil {
			panic(err)
		}

		for _, entry := range t.entries {
			if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
				panic(err)
			}
		}

		stmt.Close()
		t.entries = nil
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	w.entryCount = 0
}

// Close flushes and closes the database. Calling it again does nothing.
func (w *SQLiteWriter) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.DB == nil {
		return nil
	}

	w.flush()

	err := w.DB.Close()
	w.DB = nil

	return err
}

func (w *SQLiteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		panic(fmt.Errorf("failed to execute %q: %w", query, err))
	}

	return res
}

func insertStatement(tableName string, sample any) string {
	marks := make([]string, len(structs.Names(sample)))
	for i := range marks {
		marks[i] = "?"
	}

	return "INSERT INTO " + tableName + " VALUES (" + strings.Join(marks, ", ") + ")"
}
