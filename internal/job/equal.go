package job

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Equal reports whether two snapshots describe the same entity state.
//
// The rule is asymmetric: a job-shaped entity
// (with a driver) never equals a service-shaped one; two services compare
// only their base fields; two jobs also require equal driver process maps.
func (j *Job) Equal(other *Job) bool {
	if j == other {
		return true
	}
	if j == nil || other == nil {
		return false
	}

	dj, do := j.Driver(), other.Driver()
	switch {
	case dj == nil && do != nil, dj != nil && do == nil:
		return false
	case dj == nil && do == nil:
		return j.baseEqual(other)
	}
	return dj.Processes().Equal(do.Processes()) && j.baseEqual(other)
}

func (j *Job) baseEqual(other *Job) bool {
	return j.id == other.id &&
		j.kind == other.kind &&
		j.State() == other.State() &&
		j.CompletionType() == other.CompletionType() &&
		j.info.equal(other.info) &&
		j.processes.Equal(other.processes)
}

// Hash is consistent with Equal: it combines the driver process map hash
// (0 without a driver) with the hash of the base fields. A nil job hashes
// to 0.
func (j *Job) Hash() uint64 {
	if j == nil {
		return 0
	}
	const prime = 31
	var driverHash uint64
	if d := j.Driver(); d != nil && d.processes != nil {
		driverHash = d.processes.Hash()
	}
	var result uint64 = 1
	result = prime*result + driverHash
	result = prime*result + j.baseHash()
	return result
}

func (j *Job) baseHash() uint64 {
	buf := make([]byte, 0, 128)
	buf = append(buf, j.id.Unique[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(j.id.Friendly))
	buf = append(buf, byte(j.kind))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(j.State()))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(j.CompletionType()))
	for _, s := range []string{j.info.User, j.info.SubmitterPID, j.info.Description, j.info.LogDirectory} {
		buf = append(buf, s...)
		buf = append(buf, 0)
	}
	if !j.info.SubmitTime.IsZero() {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(j.info.SubmitTime.UnixNano()))
	}
	buf = binary.LittleEndian.AppendUint64(buf, j.processes.Hash())
	return xxhash.Sum64(buf)
}
