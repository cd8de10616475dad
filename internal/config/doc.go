// Package config provides centralized configuration management for the
// scorecard aggregation pipeline.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file (scorecard.yaml or $SCORECARD_CONFIG)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SCORECARD_<SECTION>_<FIELD>:
//
//	SCORECARD_PIPELINE_STRICT=true
//	SCORECARD_PIPELINE_STORE=csv
//	SCORECARD_PATHS_EXTRACTS_DIR=/data/scorecard
//	SCORECARD_LOGGING_LEVEL=debug
//
// # Report Plan
//
// The aggregates to compute are described by a separate plan file, see Plan.
// A plan names datasets (attribute sets loaded from every extract) and jobs
// that consume them: rollups, null rates, cohorts, correlations and rankings.
//
// # Validation
//
// Config and Plan are validated with go-playground/validator struct tags at
// load time; plans are additionally checked for unknown datasets and jobs
// that use attributes their dataset does not load.
package config
