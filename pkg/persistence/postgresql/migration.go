package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				organization_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				trigger JSONB NOT NULL DEFAULT '{}',
				actions JSONB NOT NULL DEFAULT '[]',
				variables JSONB NOT NULL DEFAULT '{}',
				metadata JSONB NOT NULL DEFAULT '{}',
				created_by VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_organization ON workflows (organization_id);
			CREATE INDEX IF NOT EXISTS idx_workflows_status ON workflows (status);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS workflow_executions (
				id VARCHAR(64) PRIMARY KEY,
				workflow_id UUID NOT NULL,
				organization_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				context JSONB NOT NULL DEFAULT '{}',
				actions JSONB NOT NULL DEFAULT '[]',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				duration_ms BIGINT NOT NULL DEFAULT 0,
				error TEXT NOT NULL DEFAULT '',
				metadata JSONB NOT NULL DEFAULT '{}'
			);

			CREATE INDEX IF NOT EXISTS idx_executions_workflow ON workflow_executions (workflow_id, started_at DESC);
			CREATE INDEX IF NOT EXISTS idx_executions_status ON workflow_executions (status);
		`,
	}
}
