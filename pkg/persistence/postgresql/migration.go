package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE pubs (
				id UUID PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				stage_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'published', 'archived')),
				field_values JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_pubs_stage_id ON pubs(stage_id);
			CREATE INDEX idx_pubs_status ON pubs(status);

			CREATE TABLE action_instances (
				id UUID PRIMARY KEY,
				stage_id VARCHAR(255) NOT NULL,
				type VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				configuration JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_action_instances_stage_id ON action_instances(stage_id);

			CREATE TABLE automations (
				id UUID PRIMARY KEY,
				stage_id VARCHAR(255) NOT NULL,
				action_instance_id UUID NOT NULL REFERENCES action_instances(id) ON DELETE CASCADE,
				event VARCHAR(50) NOT NULL,
				source_action_instance_id UUID REFERENCES action_instances(id) ON DELETE CASCADE,
				config JSONB,
				condition JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automations_stage_id ON automations(stage_id);
			CREATE INDEX idx_automations_stage_event ON automations(stage_id, event);
			CREATE INDEX idx_automations_source ON automations(source_action_instance_id, event);

			CREATE TABLE action_runs (
				id UUID PRIMARY KEY,
				action_instance_id UUID NOT NULL,
				pub_id UUID NOT NULL,
				event VARCHAR(50) NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('success', 'failure', 'scheduled')),
				result JSONB NOT NULL,
				actor JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_action_runs_pub_id ON action_runs(pub_id);
			CREATE INDEX idx_action_runs_action_instance_id ON action_runs(action_instance_id);
			CREATE INDEX idx_action_runs_created_at ON action_runs(created_at);

			CREATE TABLE pub_value_changes (
				id UUID PRIMARY KEY,
				pub_id UUID NOT NULL,
				field_id VARCHAR(255) NOT NULL,
				old_value JSONB,
				new_value JSONB,
				action_run_id UUID,
				actor JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_pub_value_changes_pub_id ON pub_value_changes(pub_id);
			CREATE INDEX idx_pub_value_changes_action_run_id ON pub_value_changes(action_run_id);
		`,
	}
}
