package cql

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

const (
	insertTemplate = `INSERT INTO {{.Table}} ({{join .Columns ", "}})` +
		` VALUES ({{marks .Columns ", "}}){{if .IfNotExists}} IF NOT EXISTS{{end}};`

	selectTemplate = `SELECT {{if .Columns}}{{join .Columns ", "}}{{else}}COUNT(*){{end}} FROM {{.Table}}` +
		`{{if .Conditions}} WHERE {{conditions .Conditions " AND "}}{{end}} LIMIT 1;`
)

var (
	funcMap = template.FuncMap{
		"join":       strings.Join,
		"marks":      marksFunc,
		"conditions": conditionsFunc,
	}

	insertTmpl = template.Must(template.New("insert").Funcs(funcMap).Parse(insertTemplate))
	selectTmpl = template.Must(template.New("select").Funcs(funcMap).Parse(selectTemplate))
)

// stmt holds the parts of a statement. Identifiers are quoted.
type stmt struct {
	Table       string
	Columns     []string
	Conditions  []string
	IfNotExists bool
}

func newStmt(table string, columns, conditions []string) stmt {
	return stmt{Table: quote(table), Columns: quoteAll(columns), Conditions: quoteAll(conditions)}
}

func (s stmt) insert() (string, error) {
	var b bytes.Buffer
	if err := insertTmpl.Execute(&b, s); err != nil {
		return "", fmt.Errorf("cql: insert statement: %w", err)
	}
	return b.String(), nil
}

func (s stmt) selectOne() (string, error) {
	var b bytes.Buffer
	if err := selectTmpl.Execute(&b, s); err != nil {
		return "", fmt.Errorf("cql: select statement: %w", err)
	}
	return b.String(), nil
}

// marksFunc returns one bind marker per column.
func marksFunc(cols []string, sep string) string {
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = "?"
	}
	return strings.Join(marks, sep)
}

// conditionsFunc returns an equality condition per column.
func conditionsFunc(conds []string, sep string) string {
	out := make([]string, len(conds))
	for i, c := range conds {
		out[i] = c + "=?"
	}
	return strings.Join(out, sep)
}

func quote(ident string) string {
	return strconv.Quote(ident)
}

func quoteAll(idents []string) []string {
	out := make([]string, len(idents))
	for i, s := range idents {
		out[i] = quote(s)
	}
	return out
}
