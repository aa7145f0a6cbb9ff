package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scholar-rag/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const candidateColumns = `id, document_id, content, title, section, url, doi,
	external_id, venue, year, organism, mission_env, exposure, tissue, assay`

type postgresDocumentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresDocumentRepository creates a pgvector-backed document store.
func NewPostgresDocumentRepository(pool *pgxpool.Pool, logger *slog.Logger) domain.DocumentRepository {
	return &postgresDocumentRepository{pool: pool, logger: logger}
}

type dbExecutor interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *postgresDocumentRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

// Search runs a cosine similarity scan over passage_chunks, applying the
// facet filter and the similarity floor inside the query so only qualifying
// rows cross the wire.
func (r *postgresDocumentRepository) Search(
	ctx context.Context,
	queryVector []float32,
	filters domain.FilterFacets,
	topK int,
	minSimilarity float64,
) (domain.RankedList, error) {
	if topK <= 0 {
		return nil, nil
	}
	start := time.Now()

	sql, args := buildSearchQuery(queryVector, filters, topK, minSimilarity)
	rows, err := r.getExecutor(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector search: %w", err)
	}
	defer rows.Close()

	var results domain.RankedList
	for rows.Next() {
		cand, similarity, err := scanCandidateWithScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		cand.DenseScore = similarity
		results = append(results, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	r.logger.Info("vector_search_completed",
		slog.Int("result_count", len(results)),
		slog.Int("top_k", topK),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

// buildSearchQuery assembles the similarity query with one positional
// argument per constraint. Exposed inside the package for testing.
func buildSearchQuery(queryVector []float32, filters domain.FilterFacets, topK int, minSimilarity float64) (string, []interface{}) {
	args := []interface{}{pgvector.NewVector(queryVector)}
	conditions := []string{fmt.Sprintf("1 - (embedding <=> $1) >= $%d", len(args)+1)}
	args = append(args, minSimilarity)

	addList := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		args = append(args, values)
		conditions = append(conditions, fmt.Sprintf("%s = ANY($%d)", column, len(args)))
	}
	addList("organism", filters.Organism)
	addList("mission_env", filters.MissionEnv)
	addList("exposure", filters.Exposure)
	addList("tissue", filters.Tissue)
	addList("assay", filters.Assay)

	if len(filters.Tags) > 0 {
		args = append(args, filters.Tags)
		conditions = append(conditions, fmt.Sprintf("tags && $%d", len(args)))
	}
	if filters.Years != nil {
		args = append(args, filters.Years.From)
		conditions = append(conditions, fmt.Sprintf("year >= $%d", len(args)))
		args = append(args, filters.Years.To)
		conditions = append(conditions, fmt.Sprintf("year <= $%d", len(args)))
	}

	args = append(args, topK)
	sql := fmt.Sprintf(`
		SELECT %s, 1 - (embedding <=> $1) AS similarity
		FROM passage_chunks
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, candidateColumns, strings.Join(conditions, " AND "), len(args))

	return sql, args
}

func (r *postgresDocumentRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sql := fmt.Sprintf(`SELECT %s FROM passage_chunks WHERE id = ANY($1)`, candidateColumns)
	rows, err := r.getExecutor(ctx).Query(ctx, sql, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks by id: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Candidate, len(ids))
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		byID[cand.ID] = cand
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	// Input order is preserved; unknown IDs are skipped.
	results := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		if cand, ok := byID[id]; ok {
			results = append(results, cand)
		}
	}
	return results, nil
}

var facetColumns = map[string]string{
	"organism":    "organism",
	"mission_env": "mission_env",
	"exposure":    "exposure",
	"tissue":      "tissue",
	"assay":       "assay",
	"section":     "section",
	"venue":       "venue",
}

func (r *postgresDocumentRepository) FacetCounts(ctx context.Context, facet string) (map[string]int, error) {
	column, ok := facetColumns[facet]
	if !ok {
		return nil, fmt.Errorf("%w: unknown facet %q", domain.ErrMalformedFilter, facet)
	}

	sql := fmt.Sprintf(`
		SELECT %s, COUNT(*)
		FROM passage_chunks
		WHERE %s IS NOT NULL AND %s <> ''
		GROUP BY %s
	`, column, column, column, column)
	rows, err := r.getExecutor(ctx).Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query facet counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return nil, fmt.Errorf("failed to scan facet count: %w", err)
		}
		counts[value] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

// SnapshotChunks loads the full indexable corpus, ordered for deterministic
// lexical index construction.
func (r *postgresDocumentRepository) SnapshotChunks(ctx context.Context) ([]domain.Candidate, error) {
	start := time.Now()

	sql := fmt.Sprintf(`SELECT %s FROM passage_chunks ORDER BY document_id, id`, candidateColumns)
	rows, err := r.getExecutor(ctx).Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpus snapshot: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Candidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	r.logger.Info("corpus_snapshot_loaded",
		slog.Int("chunk_count", len(chunks)),
		slog.Duration("elapsed", time.Since(start)))
	return chunks, nil
}

func (r *postgresDocumentRepository) HealthCheck(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping document store: %w", err)
	}
	return nil
}

func scanCandidate(rows pgx.Rows) (domain.Candidate, error) {
	var cand domain.Candidate
	var title, section, url, doi, externalID, venue, organism, missionEnv, exposure, tissue, assay pgtype.Text
	var year pgtype.Int4

	err := rows.Scan(
		&cand.ID, &cand.DocumentID, &cand.Text, &title, &section, &url, &doi,
		&externalID, &venue, &year, &organism, &missionEnv, &exposure, &tissue, &assay,
	)
	if err != nil {
		return domain.Candidate{}, err
	}

	cand.Title = title.String
	cand.Section = section.String
	cand.URL = url.String
	cand.DOI = doi.String
	cand.ExternalID = externalID.String
	cand.Venue = venue.String
	cand.Year = int(year.Int32)
	cand.Organism = organism.String
	cand.MissionEnv = missionEnv.String
	cand.Exposure = exposure.String
	cand.Tissue = tissue.String
	cand.Assay = assay.String
	return cand, nil
}

func scanCandidateWithScore(rows pgx.Rows) (domain.Candidate, float64, error) {
	var cand domain.Candidate
	var title, section, url, doi, externalID, venue, organism, missionEnv, exposure, tissue, assay pgtype.Text
	var year pgtype.Int4
	var similarity float64

	err := rows.Scan(
		&cand.ID, &cand.DocumentID, &cand.Text, &title, &section, &url, &doi,
		&externalID, &venue, &year, &organism, &missionEnv, &exposure, &tissue, &assay,
		&similarity,
	)
	if err != nil {
		return domain.Candidate{}, 0, err
	}

	cand.Title = title.String
	cand.Section = section.String
	cand.URL = url.String
	cand.DOI = doi.String
	cand.ExternalID = externalID.String
	cand.Venue = venue.String
	cand.Year = int(year.Int32)
	cand.Organism = organism.String
	cand.MissionEnv = missionEnv.String
	cand.Exposure = exposure.String
	cand.Tissue = tissue.String
	cand.Assay = assay.String
	return cand, similarity, nil
}

var _ domain.DocumentRepository = (*postgresDocumentRepository)(nil)
