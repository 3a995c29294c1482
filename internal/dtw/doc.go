// Package dtw computes Dynamic Time Warping distances between multivariate
// sequences.
//
// Each sequence is a slice of points; every point of both sequences must
// have the same dimension. The local cost between two points defaults to
// their Euclidean distance and the accumulated cost follows
//
//	D[0,0] = cost(0,0)
//	D[i,j] = cost(i,j) + min(D[i-1,j]+p, D[i,j-1]+p, D[i-1,j-1])
//
// where p is the optional slope penalty for non-diagonal steps. The first
// row and column accumulate monotonically. The distance is D[n-1,m-1].
//
// The computation is exact and costs O(n·m) time. Only two rows of the
// accumulated-cost matrix are kept, each as long as the shorter input, so
// memory is O(min(n,m)). The warping path itself is not recovered.
package dtw
