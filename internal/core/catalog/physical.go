package catalog

var diskPayloadFields = FieldSchema{
	{Name: "path", Type: TypeString, Description: "File to read or write; a temporary file is used when empty"},
	{Name: "size", Type: TypeString, Required: true, Description: "Amount of data, e.g. 1G or 512M"},
	{Name: "processNum", Type: TypeInteger, Default: 1, Min: ptrFloat(1)},
}

var jvmTargetFields = FieldSchema{
	{Name: "class", Type: TypeString, Required: true},
	{Name: "method", Type: TypeString, Required: true},
	{Name: "pid", Type: TypeInteger, Min: ptrFloat(1)},
	{Name: "port", Type: TypeInteger, Default: 9288, Min: ptrFloat(1), Max: ptrFloat(65535)},
}

func withJVMTarget(fields ...Field) FieldSchema {
	return append(append(FieldSchema{}, jvmTargetFields...), fields...)
}

var hostNetworkFields = FieldSchema{
	{Name: "device", Type: TypeString, Description: "Network interface, e.g. eth0"},
	{Name: "ipAddress", Type: TypeString},
	{Name: "hostname", Type: TypeString},
	{Name: "sourcePort", Type: TypeString},
	{Name: "egressPort", Type: TypeString},
	{Name: "ipProtocol", Type: TypeSelect, Options: []string{"tcp", "udp", "icmp", "all"}, Default: "all"},
}

func withHostNetwork(fields ...Field) FieldSchema {
	return append(append(FieldSchema{}, fields...), hostNetworkFields...)
}

var physicalKinds = []KindDef{
	{
		Kind: KindDisk,
		Entry: ActionList{
			{Key: "disk-read-payload", DisplayName: "Read Payload", Fields: diskPayloadFields},
			{Key: "disk-write-payload", DisplayName: "Write Payload", Fields: diskPayloadFields},
			{Key: "disk-fill", DisplayName: "Fill", Fields: FieldSchema{
				{Name: "path", Type: TypeString},
				{Name: "size", Type: TypeString, Required: true},
				{Name: "fillByFallocate", Type: TypeBoolean, Default: true},
			}},
		},
	},
	{
		Kind: KindJVM,
		Entry: ActionList{
			{Key: "exception", DisplayName: "Exception", Fields: withJVMTarget(
				Field{Name: "exception", Type: TypeString, Required: true},
			)},
			{Key: "gc", DisplayName: "GC", Fields: FieldSchema{
				{Name: "pid", Type: TypeInteger, Min: ptrFloat(1)},
				{Name: "port", Type: TypeInteger, Default: 9288, Min: ptrFloat(1), Max: ptrFloat(65535)},
			}},
			{Key: "latency", DisplayName: "Latency", Fields: withJVMTarget(
				Field{Name: "latency", Type: TypeInteger, Required: true, Min: ptrFloat(0), Description: "Milliseconds"},
			)},
			{Key: "return", DisplayName: "Return", Fields: withJVMTarget(
				Field{Name: "value", Type: TypeString, Required: true},
			)},
			{Key: "stress", DisplayName: "Stress", Fields: FieldSchema{
				{Name: "cpuCount", Type: TypeInteger, Min: ptrFloat(0)},
				{Name: "memType", Type: TypeSelect, Options: []string{"", "stack", "heap"}},
				{Name: "pid", Type: TypeInteger, Min: ptrFloat(1)},
				{Name: "port", Type: TypeInteger, Default: 9288, Min: ptrFloat(1), Max: ptrFloat(65535)},
			}},
		},
	},
	{
		Kind: KindNetwork,
		Entry: ActionList{
			{Key: "corrupt", DisplayName: "Corrupt", Fields: withHostNetwork(
				Field{Name: "percent", Type: TypeString, Required: true},
				correlationField,
			)},
			{Key: "delay", DisplayName: "Delay", Fields: withHostNetwork(
				Field{Name: "latency", Type: TypeString, Required: true, Pattern: durationPattern},
				Field{Name: "jitter", Type: TypeString, Pattern: durationPattern},
				correlationField,
			)},
			{Key: "duplicate", DisplayName: "Duplicate", Fields: withHostNetwork(
				Field{Name: "percent", Type: TypeString, Required: true},
				correlationField,
			)},
			{Key: "loss", DisplayName: "Loss", Fields: withHostNetwork(
				Field{Name: "percent", Type: TypeString, Required: true},
				correlationField,
			)},
			{Key: "dns", DisplayName: "DNS", Fields: FieldSchema{
				{Name: "dnsServer", Type: TypeString, Required: true},
				{Name: "hostname", Type: TypeString},
				{Name: "dnsIp", Type: TypeString},
			}},
		},
	},
	{
		Kind: KindProcess,
		Entry: FieldSet{Fields: FieldSchema{
			{Name: "process", Type: TypeString, Required: true, Description: "Process name or PID"},
			{Name: "signal", Type: TypeInteger, Required: true, Default: 9, Min: ptrFloat(1), Max: ptrFloat(64)},
		}},
	},
	{
		Kind: KindStress,
		Entry: ActionList{
			{Key: "stress-cpu", DisplayName: "CPU", Fields: FieldSchema{
				{Name: "load", Type: TypeInteger, Default: 10, Min: ptrFloat(0), Max: ptrFloat(100)},
				{Name: "workers", Type: TypeInteger, Default: 1, Min: ptrFloat(1)},
			}},
			{Key: "stress-mem", DisplayName: "Memory", Fields: FieldSchema{
				{Name: "size", Type: TypeString, Required: true},
			}},
		},
	},
	{
		Kind: KindTime,
		Entry: FieldSet{Fields: FieldSchema{
			{Name: "timeOffset", Type: TypeString, Required: true, Pattern: durationPattern},
			{Name: "clockIdsSlice", Type: TypeString, Default: "CLOCK_REALTIME"},
			{Name: "pid", Type: TypeInteger, Min: ptrFloat(1)},
		}},
	},
	{
		Kind: KindHost,
		Entry: ActionList{
			{Key: "shutdown", DisplayName: "Shutdown", SubmitImmediately: true},
		},
	},
}
