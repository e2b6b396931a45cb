package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	chstore "github.com/BlueGuider/Price-Based-Bot/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the target database if needed and
// applies the embedded SQL files in lexical order. The returned
// connection is bound to the target database and ready for use.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	if err := ensureDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		conn.Close()
		return nil, err
	}

	for _, file := range files {
		if err := applyClickhouseFile(ctx, conn, file); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// ensureDatabase connects without a database selected and issues the
// CREATE DATABASE. The regular connection cannot do this because the
// driver authenticates against the database named in its options.
func ensureDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

// applyClickhouseFile runs one migration file statement by statement;
// the driver's Exec rejects multi-statement strings.
func applyClickhouseFile(ctx context.Context, conn *chstore.Conn, file string) error {
	data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}
	stmts, err := splitStatements(string(data))
	if err != nil {
		return fmt.Errorf("parse migration %s: %w", file, err)
	}
	for _, stmt := range stmts {
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

// splitStatements cuts a migration file into statements on semicolons,
// dropping blank lines and "--" comments first. The splitter is
// deliberately naive, so migration files must keep semicolons out of
// string literals and stick to line comments; files that violate this
// are rejected.
func splitStatements(input string) ([]string, error) {
	if err := checkSemicolonsInStrings(input); err != nil {
		return nil, err
	}

	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

// checkSemicolonsInStrings rejects SQL whose single-quoted literals
// contain semicolons, the one construct splitStatements cannot handle.
func checkSemicolonsInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch {
		case sql[i] == '\'':
			// '' escapes a quote inside a literal
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case sql[i] == ';' && inString:
			return fmt.Errorf("semicolon inside string literal")
		}
	}
	return nil
}

// databaseFromDSN extracts the database name from the DSN's path.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
