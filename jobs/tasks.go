package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMonthlyCharges runs the monthly charge scheduler for all buildings.
	TaskMonthlyCharges = "billing:monthly_charges"
	// TaskLedgerRollup folds the previous month into monthly balances.
	TaskLedgerRollup = "ledger:rollup"
	// TaskIntegrityCheck compares cached balances against the ledger.
	TaskIntegrityCheck = "ledger:integrity"
	// TaskNotifyCharges announces freshly created charges to residents.
	TaskNotifyCharges = "notify:charges"
)

// MonthlyChargesPayload parameterises a scheduled charges run.
type MonthlyChargesPayload struct {
	Month  string `json:"month,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
}

// NewMonthlyChargesTask constructs an Asynq task for the monthly charge run.
func NewMonthlyChargesTask(payload MonthlyChargesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMonthlyCharges, data, asynq.Queue(QueueDefault)), nil
}

// LedgerRollupPayload parameterises a balance rollup run.
type LedgerRollupPayload struct {
	Month string `json:"month,omitempty"`
}

// NewLedgerRollupTask constructs an Asynq task for the monthly rollup.
func NewLedgerRollupTask(payload LedgerRollupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerRollup, data, asynq.Queue(QueueDefault)), nil
}

// IntegrityCheckPayload parameterises a ledger integrity scan.
type IntegrityCheckPayload struct {
	Fix bool `json:"fix,omitempty"`
}

// NewIntegrityCheckTask constructs an Asynq task for the integrity scan.
func NewIntegrityCheckTask(payload IntegrityCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityCheck, data, asynq.Queue(QueueDefault)), nil
}

// NotifyChargesPayload describes a charge notification for one building.
type NotifyChargesPayload struct {
	BuildingID int64             `json:"building_id"`
	Month      string            `json:"month"`
	Created    int               `json:"created"`
	Amounts    map[string]string `json:"amounts,omitempty"`
}

// NewNotifyChargesTask constructs an Asynq task announcing created charges.
func NewNotifyChargesTask(payload NotifyChargesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyCharges, data, asynq.Queue(QueueDefault)), nil
}

// HandleNotifyChargesTask processes TaskNotifyCharges tasks.
func HandleNotifyChargesTask(ctx context.Context, t *asynq.Task) error {
	var payload NotifyChargesPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: deliver per-resident notices once an outbound channel exists.
	fmt.Printf("[jobs] notify charges building=%d month=%s created=%d\n", payload.BuildingID, payload.Month, payload.Created)
	return nil
}
