package eventlog

import (
	"fmt"
	"hash/fnv"
)

// Exchange is the single logical topic for route events (spec §4.3).
const Exchange = "route-events"

// partitionQueue names the durable queue backing one partition of Exchange.
func partitionQueue(partition int) string {
	return fmt.Sprintf("%s.%d", Exchange, partition)
}

// partitionKey names the routing key bound to a partition's queue; the
// publisher uses it as the message routing key too, so fanout stays
// 1:1 between a partition number and its queue.
func partitionKey(partition int) string {
	return fmt.Sprintf("p%d", partition)
}

// groupQueue names a consumer group's own durable queue for one partition;
// a group has one such queue per partition, so each group observes every
// event (spec §4.3: "each logical consumer runs in its own consumer group").
func groupQueue(group string, partition int) string {
	return fmt.Sprintf("%s.%s.%d", Exchange, group, partition)
}

// Partition maps a canonical route identifier string onto one of
// numPartitions partitions via FNV-32, giving per-route ordering (the same
// identifier always lands on the same partition) while spreading unrelated
// routes across partitions.
func Partition(identifier string, numPartitions int) int {
	if numPartitions <= 0 {
		numPartitions = 1
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier))
	return int(h.Sum32() % uint32(numPartitions))
}
