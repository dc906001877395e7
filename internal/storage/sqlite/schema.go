package sqlite

// schema is the current-version SQL applied to a fresh database.
// Invariants enforceable as CHECK constraints or unique indexes live
// here rather than purely in application code, so a writer that
// bypasses internal/validation (a bulk import, a manual SQL fixup)
// still cannot produce a row the engine's invariants forbid.
const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	tenant_id        TEXT NOT NULL,
	project_id       TEXT NOT NULL,
	deliverable_id   TEXT NOT NULL DEFAULT '',
	work_kind        TEXT NOT NULL CHECK (work_kind IN ('work', 'fix')),
	status           TEXT NOT NULL CHECK (status IN ('blocked', 'available', 'assigned', 'in_progress', 'submitted', 'done', 'canceled')),
	assignee_id      TEXT NOT NULL DEFAULT '',
	assigned_at      TEXT,
	row_version      INTEGER NOT NULL DEFAULT 1,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	origin_task_id   TEXT NOT NULL DEFAULT '',
	qc_inspection_id TEXT NOT NULL DEFAULT '',
	fix_source       TEXT NOT NULL DEFAULT '' CHECK (fix_source IN ('', 'qc_reject', 'worker_initiative', 'supervisor_request')),
	fix_severity     TEXT NOT NULL DEFAULT '' CHECK (fix_severity IN ('', 'minor', 'major', 'critical')),
	minutes_spent    INTEGER NOT NULL DEFAULT 0 CHECK (minutes_spent >= 0),
	-- I1/assignment-consistency: blocked/available tasks have no
	-- assignee; assigned/in_progress/submitted tasks always do;
	-- done/canceled are unconstrained.
	CHECK (
		(status IN ('blocked', 'available') AND assignee_id = '')
		OR (status IN ('assigned', 'in_progress', 'submitted') AND assignee_id != '')
		OR (status IN ('done', 'canceled'))
	),
	-- I5/I6 fix-task context coherence: a fix task carries fix_source
	-- and fix_severity, at least one origin reference, and
	-- fix_source=qc_reject iff qc_inspection_id is set. A work task
	-- carries none of this.
	CHECK (
		(work_kind = 'work' AND origin_task_id = '' AND qc_inspection_id = '' AND fix_source = '' AND fix_severity = '')
		OR (work_kind = 'fix' AND fix_source != '' AND fix_severity != ''
			AND (origin_task_id != '' OR qc_inspection_id != '' OR deliverable_id != '')
			AND ((fix_source = 'qc_reject') = (qc_inspection_id != '')))
	)
);

CREATE INDEX IF NOT EXISTS idx_tasks_tenant_assignee_status
	ON tasks(tenant_id, assignee_id, status);

CREATE INDEX IF NOT EXISTS idx_tasks_origin_task
	ON tasks(origin_task_id) WHERE origin_task_id != '';

CREATE INDEX IF NOT EXISTS idx_tasks_qc_inspection
	ON tasks(qc_inspection_id) WHERE qc_inspection_id != '';

CREATE INDEX IF NOT EXISTS idx_tasks_deliverable
	ON tasks(deliverable_id) WHERE deliverable_id != '';

CREATE TABLE IF NOT EXISTS task_transitions (
	id                   TEXT PRIMARY KEY,
	task_id              TEXT NOT NULL REFERENCES tasks(id),
	from_status          TEXT NOT NULL,
	to_status            TEXT NOT NULL,
	action               TEXT NOT NULL,
	client_event_id      TEXT NOT NULL DEFAULT '',
	actor_id             TEXT NOT NULL DEFAULT '',
	payload              TEXT NOT NULL DEFAULT '{}',
	fingerprint          TEXT NOT NULL DEFAULT '',
	expected_row_version INTEGER NOT NULL DEFAULT 0,
	result_row_version   INTEGER NOT NULL DEFAULT 0,
	created_at           TEXT NOT NULL,
	seq                  INTEGER
);

-- I-idempotency-uniqueness: at most one transition per (task, client
-- event), but only when a client_event_id was actually supplied —
-- callers may submit any number of transitions with none. A second
-- insert for the same non-empty pair must fail so the executor can
-- detect the race and replay instead of double-applying.
CREATE UNIQUE INDEX IF NOT EXISTS idx_transitions_task_client_event
	ON task_transitions(task_id, client_event_id) WHERE client_event_id != '';

-- I9/version-monotonicity: result_row_version strictly increases per
-- task. escalate is exempt (partial index excludes it) because it
-- intentionally never bumps the version and may be recorded any number
-- of times at the same result_row_version.
CREATE UNIQUE INDEX IF NOT EXISTS idx_transitions_task_result_version
	ON task_transitions(task_id, result_row_version) WHERE action != 'escalate';

CREATE INDEX IF NOT EXISTS idx_transitions_task_id
	ON task_transitions(task_id);

CREATE TABLE IF NOT EXISTS deliverables (
	id          TEXT PRIMARY KEY,
	task_id     TEXT NOT NULL REFERENCES tasks(id),
	tenant_id   TEXT NOT NULL,
	project_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	qc_status   TEXT NOT NULL DEFAULT 'pass' CHECK (qc_status IN ('pass', 'reject')),
	created_at  TEXT NOT NULL,
	due_at      TEXT
);

CREATE INDEX IF NOT EXISTS idx_deliverables_task_id ON deliverables(task_id);

CREATE TABLE IF NOT EXISTS qc_inspections (
	id             TEXT PRIMARY KEY,
	deliverable_id TEXT NOT NULL REFERENCES deliverables(id),
	inspector_id   TEXT NOT NULL,
	decision       TEXT NOT NULL CHECK (decision IN ('pass', 'reject')),
	reason_code    TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inspections_deliverable_id ON qc_inspections(deliverable_id);

CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
