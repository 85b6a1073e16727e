package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-docs/internal/fhir"
	"github.com/joseph-ayodele/clinical-docs/internal/patients"
)

func summaryCmd() *cobra.Command {
	var (
		patientID string
		asJSON    bool
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a patient's encounters, reports and observations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if patientID == "" {
				patientID = cfg.Ingest.PatientID
			}
			a, err := newApp(ctx, cfg, logger, appOptions{dryRun: dryRun})
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := patients.NewService(a.registry, logger).GetPatientData(ctx, patientID)
			if err != nil {
				logger.Error("docagent.summary_failed", "patient_id", patientID, "error", err)
				return err
			}
			if asJSON {
				out, err := json.MarshalIndent(data, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			fmt.Print(formatSummary(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&patientID, "patient", "", "FHIR Patient id (defaults to PATIENT_ID)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw resources as JSON")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "read from an empty in-memory registry")
	return cmd
}

func formatSummary(d *patients.PatientData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient/%s %s\n", d.Patient.ID, patientName(d.Patient))
	if d.Patient.BirthDate != "" {
		fmt.Fprintf(&b, "  born %s\n", d.Patient.BirthDate)
	}

	fmt.Fprintf(&b, "\nEncounters (%d)\n", len(d.Encounters))
	for _, e := range d.Encounters {
		start := ""
		if e.Period != nil {
			start = e.Period.Start
		}
		reason := ""
		if len(e.ReasonCode) > 0 {
			reason = e.ReasonCode[0].Text
		}
		fmt.Fprintf(&b, "  %s  %-10s %s\n", start, e.ID, reason)
	}

	fmt.Fprintf(&b, "\nDiagnostic reports (%d)\n", len(d.Reports))
	for _, r := range d.Reports {
		fmt.Fprintf(&b, "  %s  %-10s %s (%d results)\n", r.EffectiveDateTime, r.ID, r.Code.Text, len(r.Result))
	}

	fmt.Fprintf(&b, "\nObservations (%d)\n", len(d.Observations))
	for _, o := range d.Observations {
		fmt.Fprintf(&b, "  %s  %-10s %s %s\n", o.EffectiveDateTime, o.ID, o.Code.Text, quantity(o.ValueQuantity))
	}
	return b.String()
}

func patientName(p *fhir.Patient) string {
	if len(p.Name) == 0 {
		return ""
	}
	n := p.Name[0]
	if n.Text != "" {
		return n.Text
	}
	return strings.TrimSpace(strings.Join(append(append([]string{}, n.Given...), n.Family), " "))
}

func quantity(q *fhir.Quantity) string {
	if q == nil || q.Value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%g %s", *q.Value, q.Unit))
}
