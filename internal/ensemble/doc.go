// Package ensemble drives the external instrument classifier. It spawns the
// python script once per track, parses the JSON document the script writes,
// and exposes the decision trace for the booster merge and the mix-only
// rescue that salvages instruments when the primary output is empty.
package ensemble
