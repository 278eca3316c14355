package infozip

import "time"

// dosTimeToTime converts the MS-DOS date/time pair stored in local and
// central directory headers to a time.Time in the local zone, the
// historical convention for these fields (they carry no time zone of
// their own).
func dosTimeToTime(date, t uint16) time.Time {
	year := int(date>>9) + 1980
	month := int(date >> 5 & 0x0f)
	day := int(date & 0x1f)
	hour := int(t >> 11)
	minute := int(t >> 5 & 0x3f)
	second := int(t&0x1f) * 2

	if month < 1 || month > 12 || day < 1 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
}
