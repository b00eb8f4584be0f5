// Package harness runs scripted learner scenarios against a fully
// deterministic engine and captures the resulting trace: every answer's
// level transition and queue movement, every rotation, in order.
//
// Determinism comes from three injected sources: a fixed-step time source,
// sequential attempt IDs, and the engine's own logical clock. Given the
// same scenario, the trace is byte-identical across runs, which makes
// golden-file comparison the natural assertion style. Traces are
// serialized as canonical JSON so key order can never differ.
//
// Scenarios run against a small fixed curriculum (three paths, four
// single-fact stitches each) rather than the full built-in one, keeping
// traces small enough to review by hand.
package harness
