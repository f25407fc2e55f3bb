// Package sim provides an in-memory reference simulation.
//
// World implements domain.Simulation with an ordered entity list, fixed
// geometry arrays and four player slots. Hosts step it every tick to
// produce movement worth synchronizing; clients hold one as the target of
// reconciliation.
package sim
