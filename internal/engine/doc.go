// Package engine turns FusionSolar station data into monthly reports.
//
// The Extractor reads every endpoint a report needs through a
// fusionsolar.API, so repeated runs for the same month are served by the
// response cache in package cache. Derived figures come from package metrics.
package engine
