// Package mearm drives a four-joint meArm desktop arm.
//
// An Arm turns Cartesian gripper targets into servo angles through a
// kinematics.Solver and commands them through a driver.Driver. At most one
// Arm per Registry is live at a time; WithArm scopes an arm to a function
// and always parks and resets it afterwards.
package mearm
