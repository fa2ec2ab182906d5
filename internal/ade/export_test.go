package ade

var (
	NearestNode       = nearestNode
	NearestNodeLinear = nearestNodeLinear
)
