package handoff

// Template names.
const (
	HandoffTemplate  = "HANDOFF.md"
	RecoveryTemplate = "RECOVERY.md"
)

// builtinTemplates maps template filename to content.
var builtinTemplates = map[string]string{
	HandoffTemplate:  handoffTemplate,
	RecoveryTemplate: recoveryTemplate,
}

const handoffTemplate = `# HANDOFF - {{stage_name}}

> Generated: {{timestamp}}
> Stage: {{stage_id}}

---

## 1. Summary

### Completed Tasks
{{completed_tasks}}

### Key Decisions
{{key_decisions}}

### Successful Approaches
{{successful_approaches}}

### Failed Approaches
{{failed_approaches}}

---

## 2. Outputs

| File | Description |
|------|-------------|
{{outputs_table}}

---

## 3. Next Stage: {{next_stage_name}}

### Immediate Actions
{{immediate_actions}}

### Prerequisites
{{prerequisites}}

---

## 4. Context

### Checkpoint
{{#if checkpoint_ref}}Checkpoint ID: ` + "`{{checkpoint_ref}}`" + `{{/if}}{{#if no_checkpoint}}No checkpoint{{/if}}

### AI Calls

| AI | Time | Detail | Status |
|----|------|--------|--------|
{{ai_calls_table}}

---

## 5. Notes
{{notes}}
`

const recoveryTemplate = `# Saved Work State - {{created_at}}

## Context State
- Remaining context: {{remaining}}%
- Trigger: {{trigger}}

## Current Stage
{{stage_id}}: {{stage_name}}

## Progress
### Completed
{{completed_tasks}}

### In Progress
{{in_progress_tasks}}

### Pending
{{pending_tasks}}

## Key Context
### Decisions
{{decisions}}

### Modified Files
{{modified_files}}

### Active Issues
{{active_issues}}

## Recovery Steps
1. Read this file
2. Read {{handoff_ref}}
{{#if checkpoint_ref}}3. Checkpoint available: ` + "`{{checkpoint_ref}}`" + `
{{/if}}- Resume {{stage_id}} from {{resume_from}}
`
