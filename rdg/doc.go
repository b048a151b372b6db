// Package rdg implements the render dependency graph: the per-frame,
// declarative description of GPU rendering work and its compilation into
// a correctly synchronized command buffer submission.
//
// A caller builds a Graph for the current frame, declares passes and the
// resources they read and write, then calls Compile and Execute. Compile
// processes the pass list (culling, lifetime analysis, transient aliasing,
// barrier synthesis); Execute, which fails if Compile has not run, records
// the live passes and submits them to the graphics queue.
//
// The graph is single-use: a fresh Graph is constructed every frame. Only
// the FrameSyncManager and the transient resource pool outlive a frame.
package rdg
