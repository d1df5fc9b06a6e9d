package kernel

type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

type NotificationID string

func NewNotificationID(id string) NotificationID { return NotificationID(id) }
func (n NotificationID) String() string          { return string(n) }
func (n NotificationID) IsEmpty() bool           { return string(n) == "" }

// TrackingID identifies one dispatched email or digest for engagement tracking
type TrackingID string

func NewTrackingID(id string) TrackingID { return TrackingID(id) }
func (t TrackingID) String() string      { return string(t) }
func (t TrackingID) IsEmpty() bool       { return string(t) == "" }

type TaskID string

func NewTaskID(id string) TaskID { return TaskID(id) }
func (t TaskID) String() string  { return string(t) }
func (t TaskID) IsEmpty() bool   { return string(t) == "" }
