package constants

// UnknownProvider is what extraction prompts ask the model to emit when no
// provider name is present in the document.
const UnknownProvider = "<UNKNOWN>"

const MIMEApplicationFHIRJSON = "application/fhir+json"

// FHIR resource types written or read by the pipeline.
const (
	ResourcePatient          = "Patient"
	ResourcePractitioner     = "Practitioner"
	ResourceEncounter        = "Encounter"
	ResourceObservation      = "Observation"
	ResourceDiagnosticReport = "DiagnosticReport"
)

const (
	SystemActCode           = "http://terminology.hl7.org/CodeSystem/v3-ActCode"
	SystemParticipationType = "http://terminology.hl7.org/CodeSystem/v3-ParticipationType"
	SystemDiagnosticService = "http://terminology.hl7.org/CodeSystem/v2-0074"

	CodeAmbulatory       = "AMB"
	DisplayAmbulatory    = "ambulatory"
	CodePrimaryPerformer = "PPRF"
	DisplayPrimaryPerf   = "primary performer"
	CodeLaboratory       = "LAB"
	DisplayLaboratory    = "Laboratory"

	PractitionerQualificationCode   = "PRACTITIONER_CODE"
	PractitionerQualificationSystem = "PRACTITIONER_ISSUER"
)
