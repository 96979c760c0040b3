package ml

// Path-dependent TreeSHAP (Lundberg et al., "Consistent Individualized
// Feature Attribution for Tree Ensembles", algorithm 2). Attributions are in
// raw output space, so ExpectedValue() + sum(phi) == RawScore(x).

type pathElement struct {
	feature int
	zero    float64
	one     float64
	weight  float64
}

// ShapValues returns one attribution per feature for x.
func (e *Ensemble) ShapValues(x []float64) ([]float64, error) {
	if err := e.checkVector(x); err != nil {
		return nil, err
	}
	phi := make([]float64, len(e.features))
	for _, t := range e.trees {
		t.shap(x, phi, 0, 0, nil, 1, 1, -1)
	}
	return phi, nil
}

func (t tree) shap(x, phi []float64, idx, depth int, parent []pathElement, zero, one float64, feature int) {
	path := make([]pathElement, depth+1)
	copy(path, parent)
	extendPath(path, depth, zero, one, feature)

	n := &t.nodes[idx]
	if n.IsLeaf {
		for i := 1; i <= depth; i++ {
			w := unwoundPathSum(path, depth, i)
			el := path[i]
			phi[el.feature] += w * (el.one - el.zero) * n.Value
		}
		return
	}

	hot, cold := n.LeftChild, n.RightChild
	if n.goesRight(x) {
		hot, cold = cold, hot
	}
	hotZero := t.nodes[hot].Cover / n.Cover
	coldZero := t.nodes[cold].Cover / n.Cover
	incomingZero, incomingOne := 1.0, 1.0

	// undo an earlier split on the same feature so it is counted once
	for k := 1; k <= depth; k++ {
		if path[k].feature == n.FeatureIdx {
			incomingZero = path[k].zero
			incomingOne = path[k].one
			unwindPath(path, depth, k)
			depth--
			break
		}
	}

	t.shap(x, phi, hot, depth+1, path, hotZero*incomingZero, incomingOne, n.FeatureIdx)
	t.shap(x, phi, cold, depth+1, path, coldZero*incomingZero, 0, n.FeatureIdx)
}

func extendPath(path []pathElement, depth int, zero, one float64, feature int) {
	w := 0.0
	if depth == 0 {
		w = 1
	}
	path[depth] = pathElement{feature: feature, zero: zero, one: one, weight: w}
	d := float64(depth + 1)
	for i := depth - 1; i >= 0; i-- {
		path[i+1].weight += one * path[i].weight * float64(i+1) / d
		path[i].weight = zero * path[i].weight * float64(depth-i) / d
	}
}

func unwindPath(path []pathElement, depth, k int) {
	one, zero := path[k].one, path[k].zero
	next := path[depth].weight
	d := float64(depth + 1)
	for i := depth - 1; i >= 0; i-- {
		if one != 0 {
			tmp := path[i].weight
			path[i].weight = next * d / (float64(i+1) * one)
			next = tmp - path[i].weight*zero*float64(depth-i)/d
		} else {
			path[i].weight = path[i].weight * d / (zero * float64(depth-i))
		}
	}
	for i := k; i < depth; i++ {
		path[i].feature = path[i+1].feature
		path[i].zero = path[i+1].zero
		path[i].one = path[i+1].one
	}
}

func unwoundPathSum(path []pathElement, depth, k int) float64 {
	one, zero := path[k].one, path[k].zero
	next := path[depth].weight
	d := float64(depth + 1)
	total := 0.0
	for i := depth - 1; i >= 0; i-- {
		if one != 0 {
			tmp := next * d / (float64(i+1) * one)
			total += tmp
			next = path[i].weight - tmp*zero*float64(depth-i)/d
		} else if zero != 0 {
			total += path[i].weight / zero / (float64(depth-i) / d)
		}
	}
	return total
}
