package db

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS employees (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL DEFAULT '',
    team TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS weekly_metrics (
    id BIGSERIAL PRIMARY KEY,
    employee_id BIGINT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
    week_start TIMESTAMPTZ NOT NULL,
    tasks_assigned INTEGER NOT NULL,
    tasks_completed INTEGER NOT NULL,
    missed_deadlines INTEGER NOT NULL,
    meeting_hours DOUBLE PRECISION NOT NULL,
    collaboration_score DOUBLE PRECISION NOT NULL,
    engagement_score DOUBLE PRECISION NOT NULL,
    learning_hours DOUBLE PRECISION NOT NULL,
    stretch_assignments INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (employee_id, week_start)
);

CREATE TABLE IF NOT EXISTS health_scores (
    employee_id BIGINT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
    date TIMESTAMPTZ NOT NULL,
    burnout_risk INTEGER NOT NULL,
    engagement_score INTEGER NOT NULL,
    performance_score INTEGER NOT NULL,
    workload_score INTEGER NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (employee_id, date)
);

CREATE TABLE IF NOT EXISTS ml_predictions (
    id BIGSERIAL PRIMARY KEY,
    employee_id BIGINT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
    window_start TIMESTAMPTZ NOT NULL,
    window_end TIMESTAMPTZ NOT NULL,
    burnout_risk TEXT NOT NULL,
    burnout_confidence DOUBLE PRECISION NOT NULL,
    performance_trend TEXT NOT NULL,
    performance_confidence DOUBLE PRECISION NOT NULL,
    growth_potential TEXT NOT NULL,
    growth_confidence DOUBLE PRECISION NOT NULL,
    top_features JSONB NOT NULL DEFAULT '{}',
    recommendations TEXT[] NOT NULL DEFAULT '{}',
    explanation TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS alerts (
    id BIGSERIAL PRIMARY KEY,
    employee_id BIGINT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    reason TEXT NOT NULL,
    confidence TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    action_taken BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    resolved_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS insights (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    type TEXT NOT NULL,
    level TEXT NOT NULL,
    employee_id BIGINT REFERENCES employees(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_weekly_metrics_employee_week ON weekly_metrics(employee_id, week_start DESC);
CREATE INDEX IF NOT EXISTS idx_health_scores_date ON health_scores(date);
CREATE INDEX IF NOT EXISTS idx_ml_predictions_employee_created ON ml_predictions(employee_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}
