package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/mediaminer/jobsync/app/history"
	"github.com/mediaminer/jobsync/app/joblog"
	"github.com/mediaminer/jobsync/app/presets"
	"github.com/mediaminer/jobsync/app/session"
)

// persistedState documents values kept in the state store under their keys
type persistedState struct {
	Session session.Snapshot `json:"homePageState" jsonschema:"description=form and job state"`
	JobLog  joblog.Log       `json:"job_log" jsonschema:"description=timestamped log of the jobs"`
	History []history.Entry  `json:"download_history" jsonschema:"description=submitted jobs newest first"`
}

func main() {
	presetsPath, statePath := "presets.schema.json", "state.schema.json"
	if len(os.Args) > 1 {
		presetsPath = os.Args[1]
	}
	if len(os.Args) > 2 {
		statePath = os.Args[2]
	}

	schema := jsonschema.Reflect(&presets.Presets{})
	schema.Title = "Jobsync Presets Schema"
	schema.Description = "Schema for jobsync presets file"
	schema.Version = "1.0.0"
	write(schema, presetsPath)

	schema = jsonschema.Reflect(&persistedState{})
	schema.Title = "Jobsync State Schema"
	schema.Description = "Schema of values kept in jobsync state store"
	schema.Version = "1.0.0"
	write(schema, statePath)
}

func write(schema *jsonschema.Schema, outputPath string) {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal schema: %v", err)
	}
	if err := os.WriteFile(outputPath, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		log.Fatalf("failed to write schema file: %v", err)
	}
	fmt.Printf("Schema generated successfully at %s\n", outputPath)
}
