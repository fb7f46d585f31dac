// Package pipeline provides a framework for executing scan steps in sequence.
//
// The pipeline pattern is used to process a binary artifact through its
// stages: image loading, symbol-index construction, rule evaluation, and
// summary computation. Each stage is implemented as a Step that receives
// the current report and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context between steps
// 4. The same step set serves both single and batch scans
//
// The pipeline supports batch processing of many artifacts with bounded
// concurrency using errgroup. A single analysis is strictly sequential and
// side-effect free, so concurrency exists only across artifacts.
package pipeline
