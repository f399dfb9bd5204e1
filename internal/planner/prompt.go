package planner

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/christopherklint97/skedule/internal/interval"
	"github.com/christopherklint97/skedule/internal/model"
)

const systemPrompt = `You are a scheduling assistant. Use the user's task, preferences, and free time blocks to estimate the total minutes the task needs and propose an efficient time-block plan.

Rules:
- Only place blocks inside the listed free time blocks
- Use RFC 3339 timestamps in the user's timezone for start and end
- duration_minutes must equal end minus start
- Give a short reason for each block
- Put anything else worth saying in notes

Return valid JSON matching the required schema.`

// Block is one proposed block of work.
type Block struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
	Reason          string `json:"reason"`
}

// Plan is the structured answer from the model.
type Plan struct {
	TotalEstimatedMinutes int     `json:"total_estimated_minutes"`
	Blocks                []Block `json:"blocks"`
	Notes                 string  `json:"notes"`
}

type freeBlock struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type userProfile struct {
	DisplayName string `json:"display_name,omitempty"`
	Timezone    string `json:"timezone"`
}

type payload struct {
	Task        string            `json:"task"`
	Preferences map[string]string `json:"preferences"`
	UserProfile userProfile       `json:"user_profile"`
	FreeBlocks  []freeBlock       `json:"free_time_blocks"`
}

func planSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return r.Reflect(Plan{})
}

func buildUserPrompt(req Request, profile model.Profile, free []interval.Interval) (string, error) {
	loc := profile.Location()
	tz := profile.Timezone
	if tz == "" {
		tz = "UTC"
	}
	prefs := req.Preferences
	if prefs == nil {
		prefs = map[string]string{}
	}

	p := payload{
		Task:        req.Task,
		Preferences: prefs,
		UserProfile: userProfile{DisplayName: profile.DisplayName, Timezone: tz},
		FreeBlocks:  make([]freeBlock, 0, len(free)),
	}
	for _, iv := range free {
		p.FreeBlocks = append(p.FreeBlocks, freeBlock{
			Start: iv.Start.In(loc).Format(time.RFC3339),
			End:   iv.End.In(loc).Format(time.RFC3339),
		})
	}

	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding plan request: %w", err)
	}
	return string(b), nil
}
