package ingest

import "errors"

var (
	// ErrMissingField means the payload lacks a machine id or a usable
	// event token. Nothing was written.
	ErrMissingField = errors.New("missing machineId/maquina_id or event/evento")

	// ErrMachineNotFound means the machine id references no provisioned
	// machine. Nothing was written.
	ErrMachineNotFound = errors.New("machine not found")
)
