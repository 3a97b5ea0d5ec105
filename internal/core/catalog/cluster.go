package catalog

import "github.com/dagu-org/faultline/internal/core"

// Kinds offered by the built-in catalog.
const (
	KindPod     core.Kind = "PodFault"
	KindNetwork core.Kind = "NetworkFault"
	KindIO      core.Kind = "IOFault"
	KindKernel  core.Kind = "KernelFault"
	KindTime    core.Kind = "TimeFault"
	KindStress  core.Kind = "StressFault"
	KindDNS     core.Kind = "DNSFault"
	KindAWS     core.Kind = "AWSFault"
	KindGCP     core.Kind = "GCPFault"
	KindDisk    core.Kind = "DiskFault"
	KindJVM     core.Kind = "JVMFault"
	KindProcess core.Kind = "ProcessFault"
	KindHost    core.Kind = "HostFault"
)

// Custom editors referenced by catalog entries.
const (
	EditorKernel = "kernel"
	EditorStress = "stress"
)

const durationPattern = `^-?([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

var correlationField = Field{
	Name:        "correlation",
	Type:        TypeString,
	Default:     "0",
	Description: "Correlation with the previous packet, in percent",
}

var networkDirectionField = Field{
	Name:    "direction",
	Type:    TypeSelect,
	Default: "to",
	Options: []string{"to", "from", "both"},
}

var externalTargetsField = Field{
	Name:        "externalTargets",
	Type:        TypeArray,
	Description: "Hosts or CIDRs outside the cluster affected by the fault",
}

var ioCommonFields = FieldSchema{
	{Name: "volumePath", Type: TypeString, Required: true, Description: "Mount point of the volume to inject into"},
	{Name: "path", Type: TypeString, Description: "Glob of files to affect; empty means every file"},
	{Name: "percent", Type: TypeInteger, Default: 100, Min: ptrFloat(0), Max: ptrFloat(100)},
	{Name: "methods", Type: TypeArray, Description: "File system calls to affect"},
	{Name: "containerNames", Type: TypeArray},
}

func withIOCommon(fields ...Field) FieldSchema {
	return append(append(FieldSchema{}, fields...), ioCommonFields...)
}

var awsCommonFields = FieldSchema{
	{Name: "awsRegion", Type: TypeString, Required: true},
	{Name: "ec2Instance", Type: TypeString, Required: true},
	{Name: "secretName", Type: TypeString},
}

var gcpCommonFields = FieldSchema{
	{Name: "project", Type: TypeString, Required: true},
	{Name: "zone", Type: TypeString, Required: true},
	{Name: "instance", Type: TypeString, Required: true},
	{Name: "secretName", Type: TypeString},
}

var clusterKinds = []KindDef{
	{
		Kind: KindPod,
		Entry: ActionList{
			{Key: "pod-failure", DisplayName: "Pod Failure", SubmitImmediately: true},
			{Key: "pod-kill", DisplayName: "Pod Kill", Fields: FieldSchema{
				{Name: "gracePeriod", Type: TypeInteger, Default: 0, Min: ptrFloat(0), Description: "Seconds to wait before the pod is killed"},
			}},
			{Key: "container-kill", DisplayName: "Container Kill", Fields: FieldSchema{
				{Name: "containerNames", Type: TypeArray, Required: true},
			}},
		},
	},
	{
		Kind: KindNetwork,
		Entry: ActionList{
			{Key: "partition", DisplayName: "Partition", Fields: FieldSchema{
				networkDirectionField,
				externalTargetsField,
			}},
			{Key: "loss", DisplayName: "Loss", Fields: FieldSchema{
				{Name: "loss", Type: TypeString, Required: true, Description: "Packet loss probability, in percent"},
				correlationField,
				networkDirectionField,
				externalTargetsField,
			}},
			{Key: "delay", DisplayName: "Delay", Fields: FieldSchema{
				{Name: "latency", Type: TypeString, Required: true, Pattern: durationPattern},
				{Name: "jitter", Type: TypeString, Pattern: durationPattern},
				correlationField,
				networkDirectionField,
				externalTargetsField,
			}},
			{Key: "duplicate", DisplayName: "Duplicate", Fields: FieldSchema{
				{Name: "duplicate", Type: TypeString, Required: true},
				correlationField,
				networkDirectionField,
				externalTargetsField,
			}},
			{Key: "corrupt", DisplayName: "Corrupt", Fields: FieldSchema{
				{Name: "corrupt", Type: TypeString, Required: true},
				correlationField,
				networkDirectionField,
				externalTargetsField,
			}},
			{Key: "bandwidth", DisplayName: "Bandwidth", Fields: FieldSchema{
				{Name: "rate", Type: TypeString, Required: true, Description: "Rate such as 1mbps"},
				{Name: "limit", Type: TypeInteger, Required: true, Min: ptrFloat(1)},
				{Name: "buffer", Type: TypeInteger, Required: true, Min: ptrFloat(1)},
				{Name: "peakrate", Type: TypeInteger, Min: ptrFloat(0)},
				{Name: "minburst", Type: TypeInteger, Min: ptrFloat(0)},
				networkDirectionField,
				externalTargetsField,
			}},
		},
	},
	{
		Kind: KindIO,
		Entry: ActionList{
			{Key: "latency", DisplayName: "Latency", Fields: withIOCommon(
				Field{Name: "delay", Type: TypeString, Required: true, Pattern: durationPattern},
			)},
			{Key: "fault", DisplayName: "Fault", Fields: withIOCommon(
				Field{Name: "errno", Type: TypeInteger, Required: true, Min: ptrFloat(1)},
			)},
			{Key: "attrOverride", DisplayName: "Attribute Override", Fields: withIOCommon(
				Field{Name: "perm", Type: TypeInteger, Required: true, Min: ptrFloat(0), Max: ptrFloat(0o7777)},
			)},
		},
	},
	{
		Kind:  KindKernel,
		Entry: CustomEditor{Editor: EditorKernel},
	},
	{
		Kind: KindTime,
		Entry: FieldSet{Fields: FieldSchema{
			{Name: "timeOffset", Type: TypeString, Required: true, Pattern: durationPattern},
			{Name: "clockIds", Type: TypeArray, Default: []string{"CLOCK_REALTIME"}},
			{Name: "containerNames", Type: TypeArray},
		}},
	},
	{
		Kind:  KindStress,
		Entry: CustomEditor{Editor: EditorStress},
	},
	{
		Kind:     KindDNS,
		Requires: CapabilityDNSServer,
		Entry: ActionList{
			{Key: "error", DisplayName: "Error", Fields: FieldSchema{
				{Name: "patterns", Type: TypeArray, Required: true, Description: "Domain patterns that return an error"},
			}},
			{Key: "random", DisplayName: "Random", Fields: FieldSchema{
				{Name: "patterns", Type: TypeArray, Required: true, Description: "Domain patterns that resolve to random addresses"},
			}},
		},
	},
	{
		Kind: KindAWS,
		Entry: ActionList{
			{Key: "ec2-stop", DisplayName: "Stop EC2", Fields: awsCommonFields},
			{Key: "ec2-restart", DisplayName: "Restart EC2", Fields: awsCommonFields},
			{Key: "detach-volume", DisplayName: "Detach Volume", Fields: append(append(FieldSchema{}, awsCommonFields...),
				Field{Name: "volumeID", Type: TypeString, Required: true},
				Field{Name: "deviceName", Type: TypeString, Required: true},
			)},
		},
	},
	{
		Kind: KindGCP,
		Entry: ActionList{
			{Key: "node-stop", DisplayName: "Stop Node", Fields: gcpCommonFields},
			{Key: "node-reset", DisplayName: "Reset Node", Fields: gcpCommonFields},
			{Key: "disk-loss", DisplayName: "Disk Loss", Fields: append(append(FieldSchema{}, gcpCommonFields...),
				Field{Name: "deviceNames", Type: TypeArray, Required: true},
			)},
		},
	},
}
