// Package scheduler drives submitted audio files through the three analysis
// phases.
//
// Each submission is owned by a single track goroutine that walks the phase
// machine: the technical phase runs first on the TECH pool, then the creative
// and instrumentation phases run on their own pools (concurrently by default,
// creative first in sequential mode), and finally the merge persists the
// assembled record. Pools are bounded channels with a configurable number of
// workers, so phases of different tracks interleave freely while each track
// sees a strict technical-before-background ordering.
//
// Submitting returns a Handle that resolves twice: once with the partial,
// technical-only record, and once with the final merged result. Status and
// progress events from every track funnel into two shared channels for a UI
// to consume. Work queued before the UI signals readiness is held back; a
// watchdog assumes readiness after a timeout so a headless run never stalls.
//
// Shutdown first drains queued technical work, then gives the background
// pools a bounded grace interval; tracks cut off by the deadline still merge
// and persist with explicit status strings. Cancelling an individual
// submission instead abandons the track without persisting anything.
package scheduler
