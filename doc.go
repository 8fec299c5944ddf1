// Package morphogh is the headless core of a parametric design exploration
// plugin: it stores every evaluated variant of a design definition, breeds
// new candidate input vectors from the stored history, and paces batch
// exploration runs.
//
// The host (a visual programming environment driving a parametric model)
// evaluates candidates and hands the results back; this module owns
// everything around that evaluation:
//
//   - Store: one SQLite database per campaign directory holding projects,
//     solutions, and asset records. Inputs and outputs are JSON documents
//     queried with json_extract; writers get per-project consecutive scoped
//     ids assigned atomically with the insert.
//
//   - Engine: a generational search over the declared parameter intervals.
//     Candidates are bred from two parents sampled out of the filtered
//     history, mutated by fresh uniform draws, and regenerated until a
//     never-seen vector is found.
//
//   - Fitness: a small expression tree (comparisons, top/bottom-N ranks,
//     AND/OR joins) that compiles to parameterized SQL predicates narrowing
//     which solutions may become parents.
//
//   - Loop: an iteration controller that arms a solution budget, polls the
//     store count on a ticker, and signals the host over a channel when to
//     recompute and when the budget is spent.
//
//   - Export: asset archival into the campaign directory and a CSV mirror
//     of every stored solution.
//
// Packages live under pkg/; cmd/morpho-cli is a read-only inspection tool
// for campaign directories.
package morphogh
