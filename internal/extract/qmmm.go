// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import "github.com/pdiddy/sim-agent/pkg/types"

// QMMMStub is the placeholder QM/MM deep profile. It lists the fields the
// full profile will report.
func QMMMStub() types.DomainDetails {
	return types.DomainDetails{
		Profile: string(types.SimQMMM),
		Status:  "stub",
		Message: "QM/MM deep profile is not implemented yet; only core extraction was run.",
		SchemaPreview: []string{
			"qm_method_basis_functional",
			"mm_force_field",
			"qm_mm_coupling",
			"partition_regions",
			"embedding_scheme",
			"charge_treatment",
			"time_step_and_coupling",
		},
	}
}
