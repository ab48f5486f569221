//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the directory itself for new databases.
// For existing databases, the directory must contain valid KuzuDB files.
// This makes the repository graph persistent across sync runs.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// Ensure the parent directory exists (KuzuDB creates the leaf directory).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open file database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
//
// Nodes use SERIAL surrogate keys; natural keys (paths) are plain
// properties. Tables beyond Repository, Folder, and File are reserved for
// the code-structure parser and stay empty until it lands.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Repository(
		repo_id SERIAL,
		name STRING,
		root_path STRING,
		PRIMARY KEY(repo_id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Folder(
		folder_id SERIAL,
		path STRING,
		depth INT64,
		repo_id INT64,
		PRIMARY KEY(folder_id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS File(
		file_id SERIAL,
		path STRING,
		lang STRING,
		sha256 STRING,
		size INT64,
		repo_id INT64,
		PRIMARY KEY(file_id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS ModuleClass(
		mc_id SERIAL,
		name STRING,
		lang STRING,
		lineno INT64,
		file_id INT64,
		PRIMARY KEY(mc_id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Function(
		func_id SERIAL,
		name STRING,
		lang STRING,
		signature STRING,
		lineno INT64,
		file_id INT64,
		mc_id INT64,
		embedding_id INT64,
		PRIMARY KEY(func_id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS TestCase(
		test_id SERIAL,
		name STRING,
		framework STRING,
		result STRING,
		ts TIMESTAMP,
		file_id INT64,
		PRIMARY KEY(test_id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Error(
		error_id SERIAL,
		message STRING,
		stack_hash STRING,
		ts TIMESTAMP,
		severity STRING,
		PRIMARY KEY(error_id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Goal(
		goal_id SERIAL,
		title STRING,
		priority STRING,
		status STRING,
		due DATE,
		PRIMARY KEY(goal_id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Requirement(
		req_id_internal SERIAL,
		req_id STRING,
		text STRING,
		source STRING,
		PRIMARY KEY(req_id_internal)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Note(
		note_id SERIAL,
		author STRING,
		content STRING,
		ts TIMESTAMP,
		PRIMARY KEY(note_id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS CONTAINS(
		FROM Repository TO Folder,
		FROM Repository TO File,
		FROM Folder TO Folder,
		FROM Folder TO File,
		FROM File TO ModuleClass,
		FROM ModuleClass TO Function,
		FROM File TO Function
	)`,
	`CREATE REL TABLE IF NOT EXISTS CALLS(FROM Function TO Function)`,
	`CREATE REL TABLE IF NOT EXISTS IMPORTS(FROM File TO File)`,
	`CREATE REL TABLE IF NOT EXISTS TESTS(FROM TestCase TO Function)`,
	`CREATE REL TABLE IF NOT EXISTS ERROR_IN(FROM Error TO Function)`,
	`CREATE REL TABLE IF NOT EXISTS SATISFIED_BY(
		FROM Requirement TO Function,
		FROM Requirement TO ModuleClass
	)`,
	`CREATE REL TABLE IF NOT EXISTS TRACKED_BY(
		FROM Goal TO Requirement,
		FROM Goal TO Note
	)`,
	`CREATE REL TABLE IF NOT EXISTS REFERS_TO(
		FROM Note TO Function,
		FROM Note TO File
	)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Transaction control ----------

// BeginWrite opens an explicit write transaction on the connection.
func (s *KuzuStore) BeginWrite(_ context.Context) error {
	return s.execRaw("BEGIN TRANSACTION")
}

// Commit makes all writes since BeginWrite durable.
func (s *KuzuStore) Commit(_ context.Context) error {
	return s.execRaw("COMMIT")
}

// Rollback discards all writes since BeginWrite.
func (s *KuzuStore) Rollback(_ context.Context) error {
	return s.execRaw("ROLLBACK")
}

// ---------- Write operations ----------

// UpsertRepo merges a Repository node by root path and returns its surrogate
// ID. The name is refreshed on every call; the ID is stable across runs.
func (s *KuzuStore) UpsertRepo(_ context.Context, rootPath, name string) (int64, error) {
	rows, err := s.query(
		`MERGE (r:Repository {root_path: $path})
		 ON CREATE SET r.name = $name
		 ON MATCH SET r.name = $name
		 RETURN r.repo_id`,
		map[string]any{"path": rootPath, "name": name},
	)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, fmt.Errorf("kuzu: repository upsert returned no id for %s", rootPath)
	}
	return toInt64(rows[0][0]), nil
}

// UpsertFolder merges a Folder node by path, refreshing depth and repo_id.
func (s *KuzuStore) UpsertFolder(_ context.Context, node FolderNode) error {
	return s.exec(
		`MERGE (f:Folder {path: $path})
		 ON CREATE SET f.depth = $depth, f.repo_id = $repo_id
		 ON MATCH SET f.depth = $depth, f.repo_id = $repo_id`,
		map[string]any{
			"path":    node.Path,
			"depth":   int64(node.Depth),
			"repo_id": node.RepoID,
		},
	)
}

// UpsertFile merges a File node by path, refreshing lang, sha256, size, and
// repo_id.
func (s *KuzuStore) UpsertFile(_ context.Context, node FileNode) error {
	return s.exec(
		`MERGE (f:File {path: $path})
		 ON CREATE SET f.lang = $lang, f.sha256 = $sha, f.size = $size, f.repo_id = $repo_id
		 ON MATCH SET f.lang = $lang, f.sha256 = $sha, f.size = $size, f.repo_id = $repo_id`,
		map[string]any{
			"path":    node.Path,
			"lang":    string(node.Lang),
			"sha":     node.Digest,
			"size":    node.Size,
			"repo_id": node.RepoID,
		},
	)
}

// MergeContains ensures a containment edge exists between the two endpoints.
// MATCH plus MERGE keeps the operation idempotent: re-merging an existing
// edge creates nothing, and a missing endpoint produces no edge at all.
func (s *KuzuStore) MergeContains(_ context.Context, edge ContainsEdge) error {
	cypher, err := containsCypher(edge.Kind)
	if err != nil {
		return err
	}
	return s.exec(cypher, map[string]any{
		"parent": edge.ParentPath,
		"child":  edge.ChildPath,
	})
}

// containsCypher returns the MATCH-MERGE Cypher for the given containment kind.
func containsCypher(kind ContainsKind) (string, error) {
	switch kind {
	case ContainsRepoFolder:
		return `MATCH (a:Repository {root_path: $parent}), (b:Folder {path: $child})
				MERGE (a)-[:CONTAINS]->(b)`, nil
	case ContainsRepoFile:
		return `MATCH (a:Repository {root_path: $parent}), (b:File {path: $child})
				MERGE (a)-[:CONTAINS]->(b)`, nil
	case ContainsFolderFolder:
		return `MATCH (a:Folder {path: $parent}), (b:Folder {path: $child})
				MERGE (a)-[:CONTAINS]->(b)`, nil
	case ContainsFolderFile:
		return `MATCH (a:Folder {path: $parent}), (b:File {path: $child})
				MERGE (a)-[:CONTAINS]->(b)`, nil
	default:
		return "", fmt.Errorf("kuzu: unsupported containment kind: %s", kind)
	}
}

// ---------- Digest snapshot ----------

// FileDigests returns the stored SHA-256 for every File node, keyed by path.
// The synchronizer diffs scan results against this map to decide which files
// changed since the previous run.
func (s *KuzuStore) FileDigests(_ context.Context) (map[string]string, error) {
	rows, err := s.query("MATCH (f:File) RETURN f.path, f.sha256", nil)
	if err != nil {
		return nil, err
	}
	digests := make(map[string]string, len(rows))
	for _, r := range rows {
		digests[toString(r[0])] = toString(r[1])
	}
	return digests, nil
}

// ---------- Read operations ----------

// GetRepo retrieves a Repository node by root path, or nil if not found.
func (s *KuzuStore) GetRepo(_ context.Context, rootPath string) (*RepoNode, error) {
	rows, err := s.query(
		"MATCH (r:Repository {root_path: $path}) RETURN r.repo_id, r.name, r.root_path",
		map[string]any{"path": rootPath},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToRepo(rows[0]), nil
}

// GetFolder retrieves a Folder node by path, or nil if not found.
func (s *KuzuStore) GetFolder(_ context.Context, path string) (*FolderNode, error) {
	rows, err := s.query(
		"MATCH (f:Folder {path: $path}) RETURN f.path, f.depth, f.repo_id",
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToFolder(rows[0]), nil
}

// GetFile retrieves a File node by path, or nil if not found.
func (s *KuzuStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	rows, err := s.query(
		"MATCH (f:File {path: $path}) RETURN f.path, f.lang, f.sha256, f.size, f.repo_id",
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToFile(rows[0]), nil
}

// ListRepos returns all Repository nodes.
func (s *KuzuStore) ListRepos(_ context.Context) ([]RepoNode, error) {
	rows, err := s.query("MATCH (r:Repository) RETURN r.repo_id, r.name, r.root_path", nil)
	if err != nil {
		return nil, err
	}
	out := make([]RepoNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToRepo(r))
	}
	return out, nil
}

// ListFolders returns all Folder nodes belonging to the given repository.
func (s *KuzuStore) ListFolders(_ context.Context, repoID int64) ([]FolderNode, error) {
	rows, err := s.query(
		"MATCH (f:Folder) WHERE f.repo_id = $repo_id RETURN f.path, f.depth, f.repo_id",
		map[string]any{"repo_id": repoID},
	)
	if err != nil {
		return nil, err
	}
	out := make([]FolderNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToFolder(r))
	}
	return out, nil
}

// ListFiles returns all File nodes belonging to the given repository.
func (s *KuzuStore) ListFiles(_ context.Context, repoID int64) ([]FileNode, error) {
	rows, err := s.query(
		"MATCH (f:File) WHERE f.repo_id = $repo_id RETURN f.path, f.lang, f.sha256, f.size, f.repo_id",
		map[string]any{"repo_id": repoID},
	)
	if err != nil {
		return nil, err
	}
	out := make([]FileNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToFile(r))
	}
	return out, nil
}

// ContainsEdges returns all containment edges across every endpoint pairing.
func (s *KuzuStore) ContainsEdges(_ context.Context) ([]ContainsEdge, error) {
	type pairQuery struct {
		cypher string
		kind   ContainsKind
	}

	queries := []pairQuery{
		{"MATCH (a:Repository)-[:CONTAINS]->(b:Folder) RETURN a.root_path, b.path", ContainsRepoFolder},
		{"MATCH (a:Repository)-[:CONTAINS]->(b:File) RETURN a.root_path, b.path", ContainsRepoFile},
		{"MATCH (a:Folder)-[:CONTAINS]->(b:Folder) RETURN a.path, b.path", ContainsFolderFolder},
		{"MATCH (a:Folder)-[:CONTAINS]->(b:File) RETURN a.path, b.path", ContainsFolderFile},
	}

	var edges []ContainsEdge
	for _, q := range queries {
		rows, err := s.query(q.cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, ContainsEdge{
				Kind:       q.kind,
				ParentPath: toString(r[0]),
				ChildPath:  toString(r[1]),
			})
		}
	}
	return edges, nil
}

// ---------- Stats ----------

// Stats returns counts of the populated node tables and all relationship
// tables.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	repos, err := s.countTable("Repository")
	if err != nil {
		return nil, err
	}
	folders, err := s.countTable("Folder")
	if err != nil {
		return nil, err
	}
	files, err := s.countTable("File")
	if err != nil {
		return nil, err
	}
	edges, err := s.countEdges()
	if err != nil {
		return nil, err
	}
	return &GraphStats{
		RepositoryCount: repos,
		FolderCount:     folders,
		FileCount:       files,
		EdgeCount:       edges,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// execRaw runs an unparameterized statement such as transaction control.
func (s *KuzuStore) execRaw(stmt string) error {
	res, err := s.conn.Query(stmt)
	if err != nil {
		return fmt.Errorf("kuzu: %s: %w", stmt, err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// countTable returns the number of rows in a node table.
func (s *KuzuStore) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// countEdges returns the total number of edges across all relationship tables.
func (s *KuzuStore) countEdges() (int, error) {
	tables := []string{"CONTAINS", "CALLS", "IMPORTS", "TESTS", "ERROR_IN", "SATISFIED_BY", "TRACKED_BY", "REFERS_TO"}
	total := 0
	for _, t := range tables {
		cypher := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", t)
		rows, err := s.query(cypher, nil)
		if err != nil {
			// Table may not exist yet; treat as zero.
			continue
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			total += toInt(rows[0][0])
		}
	}
	return total, nil
}

// rowToRepo converts a 3-column result row into a RepoNode.
// Column order: repo_id, name, root_path.
func rowToRepo(r []any) *RepoNode {
	return &RepoNode{
		ID:       toInt64(r[0]),
		Name:     toString(r[1]),
		RootPath: toString(r[2]),
	}
}

// rowToFolder converts a 3-column result row into a FolderNode.
// Column order: path, depth, repo_id.
func rowToFolder(r []any) *FolderNode {
	return &FolderNode{
		Path:   toString(r[0]),
		Depth:  toInt(r[1]),
		RepoID: toInt64(r[2]),
	}
}

// rowToFile converts a 5-column result row into a FileNode.
// Column order: path, lang, sha256, size, repo_id.
func rowToFile(r []any) *FileNode {
	return &FileNode{
		Path:   toString(r[0]),
		Lang:   Language(toString(r[1])),
		Digest: toString(r[2]),
		Size:   toInt64(r[3]),
		RepoID: toInt64(r[4]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, uint64, float64, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	return int(toInt64(v))
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
