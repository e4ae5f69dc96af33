package rubric

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// GetDefinition reads one consistent snapshot of a definition with all
// criteria and levels inside a single read transaction, so a concurrent
// save can never hand the classifier a half-written rubric.
func (s *SQLStore) GetDefinition(ctx context.Context, id int64) (Definition, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Definition{}, err
	}
	defer tx.Rollback()

	d, err := s.readDefinition(ctx, tx, id)
	if err != nil {
		return Definition{}, err
	}
	return d, tx.Commit()
}

func (s *SQLStore) readDefinition(ctx context.Context, tx *sql.Tx, id int64) (Definition, error) {
	var d Definition
	var optsJSON string
	err := tx.QueryRowContext(ctx,
		`SELECT id,name,description,status,options_json,modified_by FROM grading_definitions WHERE id=$1`, id).
		Scan(&d.ID, &d.Name, &d.Description, &d.Status, &optsJSON, &d.ModifiedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return Definition{}, ErrNotFound
	}
	if err != nil {
		return Definition{}, err
	}
	if err := json.Unmarshal([]byte(optsJSON), &d.Options); err != nil {
		return Definition{}, fmt.Errorf("definition %d options: %w", id, err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id,sort_order,description,enrichment,collab_kind,operator,scope,modules_json
		 FROM rubric_criteria WHERE definition_id=$1 ORDER BY sort_order,id`, id)
	if err != nil {
		return Definition{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Criterion
		var modsJSON string
		if err := rows.Scan(&c.ID, &c.SortOrder, &c.Description, &c.Enrichment,
			&c.CollabKind, &c.Operator, &c.Scope, &modsJSON); err != nil {
			return Definition{}, err
		}
		if err := json.Unmarshal([]byte(modsJSON), &c.Modules); err != nil {
			return Definition{}, fmt.Errorf("criterion %d modules: %w", c.ID, err)
		}
		d.Criteria = append(d.Criteria, c)
	}
	if err := rows.Err(); err != nil {
		return Definition{}, err
	}

	for i := range d.Criteria {
		c := &d.Criteria[i]
		lrows, err := tx.QueryContext(ctx,
			`SELECT id,score,definition,enriched_value FROM rubric_levels WHERE criterion_id=$1 ORDER BY score,id`, c.ID)
		if err != nil {
			return Definition{}, err
		}
		for lrows.Next() {
			var l Level
			var ev sql.NullInt64
			if err := lrows.Scan(&l.ID, &l.Score, &l.Definition, &ev); err != nil {
				lrows.Close()
				return Definition{}, err
			}
			if ev.Valid {
				v := int(ev.Int64)
				l.EnrichedValue = &v
			}
			c.Levels = append(c.Levels, l)
		}
		if err := lrows.Err(); err != nil {
			lrows.Close()
			return Definition{}, err
		}
		lrows.Close()
	}
	return d, nil
}

// SaveDefinition writes the full snapshot in one transaction, resolving
// pending (zero) criterion and level ids and deleting rows absent from the
// submission. Fillings of deleted criteria go with them via FK cascade.
func (s *SQLStore) SaveDefinition(ctx context.Context, d Definition) (Definition, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Definition{}, err
	}
	defer tx.Rollback()

	optsJSON, err := json.Marshal(d.Options)
	if err != nil {
		return Definition{}, err
	}
	now := time.Now().Unix()

	if d.ID == 0 {
		err = tx.QueryRowContext(ctx,
			`INSERT INTO grading_definitions (name,description,status,options_json,modified_by,updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			d.Name, d.Description, d.Status, string(optsJSON), d.ModifiedBy, now).Scan(&d.ID)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE grading_definitions SET name=$1,description=$2,status=$3,options_json=$4,modified_by=$5,updated_at=$6 WHERE id=$7`,
			d.Name, d.Description, d.Status, string(optsJSON), d.ModifiedBy, now, d.ID)
	}
	if err != nil {
		return Definition{}, err
	}

	keptCriteria := make([]int64, 0, len(d.Criteria))
	for i := range d.Criteria {
		c := &d.Criteria[i]
		modsJSON, err := json.Marshal(c.Modules)
		if err != nil {
			return Definition{}, err
		}
		if c.Modules == nil {
			modsJSON = []byte("[]")
		}
		if c.ID == 0 {
			err = tx.QueryRowContext(ctx,
				`INSERT INTO rubric_criteria (definition_id,sort_order,description,enrichment,collab_kind,operator,scope,modules_json)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
				d.ID, c.SortOrder, c.Description, string(c.Enrichment), string(c.CollabKind),
				string(c.Operator), string(c.Scope), string(modsJSON)).Scan(&c.ID)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE rubric_criteria SET sort_order=$1,description=$2,enrichment=$3,collab_kind=$4,operator=$5,scope=$6,modules_json=$7
				 WHERE id=$8 AND definition_id=$9`,
				c.SortOrder, c.Description, string(c.Enrichment), string(c.CollabKind),
				string(c.Operator), string(c.Scope), string(modsJSON), c.ID, d.ID)
		}
		if err != nil {
			return Definition{}, err
		}
		keptCriteria = append(keptCriteria, c.ID)

		keptLevels := make([]int64, 0, len(c.Levels))
		for j := range c.Levels {
			l := &c.Levels[j]
			var ev sql.NullInt64
			if l.EnrichedValue != nil {
				ev = sql.NullInt64{Int64: int64(*l.EnrichedValue), Valid: true}
			}
			if l.ID == 0 {
				err = tx.QueryRowContext(ctx,
					`INSERT INTO rubric_levels (criterion_id,score,definition,enriched_value)
					 VALUES ($1,$2,$3,$4) RETURNING id`,
					c.ID, l.Score, l.Definition, ev).Scan(&l.ID)
			} else {
				_, err = tx.ExecContext(ctx,
					`UPDATE rubric_levels SET score=$1,definition=$2,enriched_value=$3 WHERE id=$4 AND criterion_id=$5`,
					l.Score, l.Definition, ev, l.ID, c.ID)
			}
			if err != nil {
				return Definition{}, err
			}
			keptLevels = append(keptLevels, l.ID)
		}
		if err := deleteAbsent(ctx, tx, "rubric_levels", "criterion_id", c.ID, keptLevels); err != nil {
			return Definition{}, err
		}
	}
	if err := deleteAbsentDef(ctx, tx, d.ID, keptCriteria); err != nil {
		return Definition{}, err
	}

	if err := tx.Commit(); err != nil {
		return Definition{}, err
	}
	return d, nil
}

func deleteAbsent(ctx context.Context, tx *sql.Tx, table, parentCol string, parentID int64, kept []int64) error {
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE %s=$1`, table, parentCol), parentID)
	if err != nil {
		return err
	}
	var drop []int64
	keep := map[int64]bool{}
	for _, id := range kept {
		keep[id] = true
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !keep[id] {
			drop = append(drop, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	for _, id := range drop {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, table), id); err != nil {
			return err
		}
	}
	return nil
}

func deleteAbsentDef(ctx context.Context, tx *sql.Tx, defID int64, kept []int64) error {
	return deleteAbsent(ctx, tx, "rubric_criteria", "definition_id", defID, kept)
}

func (s *SQLStore) DeleteDefinition(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM grading_definitions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListDefinitions(ctx context.Context, opts ListOpts) ([]DefinitionSummary, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT d.id, d.name, d.status,
	        (SELECT COUNT(*) FROM rubric_criteria c WHERE c.definition_id=d.id),
	        (SELECT COUNT(*) FROM grading_instances i WHERE i.definition_id=d.id)
	      FROM grading_definitions d
	      WHERE ($1='' OR d.status=$1) AND ($2='' OR d.name LIKE '%'||$2||'%')
	      ORDER BY d.id LIMIT $3 OFFSET $4`
	rows, err := s.db.QueryContext(ctx, q, opts.Status, opts.Q, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DefinitionSummary
	for rows.Next() {
		var ds DefinitionSummary
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.Status, &ds.Criteria, &ds.Instances); err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateInstance(ctx context.Context, inst Instance) (Instance, error) {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	if inst.Status == "" {
		inst.Status = InstanceIncomplete
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO grading_instances (id,definition_id,rater_id,item_id,status,updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		inst.ID, inst.DefinitionID, inst.RaterID, inst.ItemID, inst.Status, time.Now().Unix())
	if err != nil {
		return Instance{}, err
	}
	return inst, nil
}

func (s *SQLStore) GetInstance(ctx context.Context, id string) (Instance, error) {
	var inst Instance
	err := s.db.QueryRowContext(ctx,
		`SELECT id,definition_id,rater_id,item_id,status FROM grading_instances WHERE id=$1`, id).
		Scan(&inst.ID, &inst.DefinitionID, &inst.RaterID, &inst.ItemID, &inst.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Instance{}, ErrNotFound
	}
	if err != nil {
		return Instance{}, err
	}
	return inst, nil
}

func (s *SQLStore) FindInstance(ctx context.Context, defID int64, raterID, itemID string) (Instance, error) {
	var inst Instance
	err := s.db.QueryRowContext(ctx,
		`SELECT id,definition_id,rater_id,item_id,status FROM grading_instances
		 WHERE definition_id=$1 AND rater_id=$2 AND item_id=$3`, defID, raterID, itemID).
		Scan(&inst.ID, &inst.DefinitionID, &inst.RaterID, &inst.ItemID, &inst.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Instance{}, ErrNotFound
	}
	if err != nil {
		return Instance{}, err
	}
	return inst, nil
}

func (s *SQLStore) UpdateInstanceStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE grading_instances SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) DeleteInstance(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM grading_instances WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) PutFillings(ctx context.Context, instanceID string, fillings []Filling) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM instance_fillings WHERE instance_id=$1`, instanceID); err != nil {
		return err
	}
	for _, f := range fillings {
		var levelID sql.NullInt64
		if f.LevelID != nil {
			levelID = sql.NullInt64{Int64: *f.LevelID, Valid: true}
		}
		var eb sql.NullInt64
		if f.EnrichedBench != nil {
			eb = sql.NullInt64{Int64: int64(*f.EnrichedBench), Valid: true}
		}
		var sb, cb sql.NullFloat64
		if f.StudentBenchmark != nil {
			sb = sql.NullFloat64{Float64: *f.StudentBenchmark, Valid: true}
		}
		if f.CohortBenchmark != nil {
			cb = sql.NullFloat64{Float64: *f.CohortBenchmark, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO instance_fillings (instance_id,criterion_id,level_id,remark,enriched_benchmark,student_benchmark,cohort_benchmark)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			instanceID, f.CriterionID, levelID, f.Remark, eb, sb, cb); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetFillings(ctx context.Context, instanceID string) ([]Filling, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT criterion_id,level_id,remark,enriched_benchmark,student_benchmark,cohort_benchmark
		 FROM instance_fillings WHERE instance_id=$1 ORDER BY criterion_id`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Filling
	for rows.Next() {
		var f Filling
		var levelID, eb sql.NullInt64
		var sb, cb sql.NullFloat64
		if err := rows.Scan(&f.CriterionID, &levelID, &f.Remark, &eb, &sb, &cb); err != nil {
			return nil, err
		}
		if levelID.Valid {
			v := levelID.Int64
			f.LevelID = &v
		}
		if eb.Valid {
			v := int(eb.Int64)
			f.EnrichedBench = &v
		}
		if sb.Valid {
			v := sb.Float64
			f.StudentBenchmark = &v
		}
		if cb.Valid {
			v := cb.Float64
			f.CohortBenchmark = &v
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountActiveInstances(ctx context.Context, defID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM grading_instances WHERE definition_id=$1 AND status=$2`,
		defID, InstanceActive).Scan(&n)
	return n, err
}

func (s *SQLStore) MarkInstancesNeedUpdate(ctx context.Context, defID int64) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE grading_instances SET status=$1, updated_at=$2 WHERE definition_id=$3 AND status=$4`,
		InstanceNeedUpdate, time.Now().Unix(), defID, InstanceActive)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
