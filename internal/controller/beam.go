package controller

import "ragrt/internal/types"

// derivePosition deterministically derives a 1..9 cycle position from
// model output: the reference rule is ((sum_of_bytes mod 9) + 1).
func derivePosition(modelOutput string) types.CyclePosition {
	var sum int
	for i := 0; i < len(modelOutput); i++ {
		sum += int(modelOutput[i])
	}
	return types.CyclePosition(sum%9 + 1)
}

// nonCheckpointFlow is the round-robin beam pattern used to build a
// trace's non-final beams.
var nonCheckpointFlow = [6]types.CyclePosition{1, 2, 4, 8, 7, 5}

// buildBeamTrace constructs a short beam trace from modelOutput's bytes:
// round-robin the non-checkpoint flow pattern for every beam but the
// last, force the final beam's position to finalPosition, increment one
// digit slot per byte (checkpoint beams receive an additional bias on
// slots 3/6/9 before renormalization), and default ELP channels to 5.0.
func buildBeamTrace(modelOutput string, finalPosition types.CyclePosition) types.BeamTrace {
	if len(modelOutput) == 0 {
		return types.BeamTrace{Beams: []types.Beam{newBeam(finalPosition)}}
	}

	numBeams := len(modelOutput)
	beams := make([]types.Beam, numBeams)

	for i := 0; i < numBeams; i++ {
		isLast := i == numBeams-1
		position := nonCheckpointFlow[i%len(nonCheckpointFlow)]
		if isLast {
			position = finalPosition
		}
		beams[i] = newBeam(position)
	}

	for i := 0; i < len(modelOutput); i++ {
		beam := &beams[i%numBeams]
		slot := int(modelOutput[i]) % 9
		beam.Slots[slot]++
	}

	for i := range beams {
		if beams[i].Position.IsSacred() {
			for _, sacredSlot := range []int{2, 5, 8} { // slots for positions 3, 6, 9
				beams[i].Slots[sacredSlot] += 1
			}
		}
		normalizeSlots(&beams[i])
	}

	return types.BeamTrace{Beams: beams}
}

func newBeam(position types.CyclePosition) types.Beam {
	return types.Beam{
		Position: position,
		Ethos:    5.0,
		Logos:    5.0,
		Pathos:   5.0,
	}
}

func normalizeSlots(b *types.Beam) {
	var sum float64
	for _, v := range b.Slots {
		sum += v
	}
	if sum == 0 {
		for i := range b.Slots {
			b.Slots[i] = 1.0 / 9.0
		}
		return
	}
	for i := range b.Slots {
		b.Slots[i] /= sum
	}
}
