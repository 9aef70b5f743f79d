package main

import (
	"strconv"
	"strings"
)

// Topic layout under the configured prefix:
//
//	<prefix>/bridge/status          online | offline (retained)
//	<prefix>/device/<id>/state      device state JSON (retained)
//	<prefix>/device/<id>/set        write requests

func statusTopic(prefix string) string {
	return prefix + "/bridge/status"
}

func stateTopic(prefix string, id int) string {
	return prefix + "/device/" + strconv.Itoa(id) + "/state"
}

func setFilter(prefix string) string {
	return prefix + "/device/+/set"
}

// parseSetTopic extracts the device ID from a set topic.
func parseSetTopic(prefix, topic string) (int, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/device/")
	if !ok {
		return 0, false
	}
	idText, ok := strings.CutSuffix(rest, "/set")
	if !ok || strings.Contains(idText, "/") {
		return 0, false
	}
	id, err := strconv.Atoi(idText)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
