package pid

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Definition files are protobuf text messages of type PidStore:
//
//	enum FieldType { BOOL = 1; UINT8 = 2; UINT16 = 3; UINT32 = 4; STRING = 5;
//	  GROUP = 6; INT8 = 7; INT16 = 8; INT32 = 9; IPV4 = 10; UID = 11; MAC = 12;
//	  IPV6 = 13; URL = 14; UINT64 = 15; INT64 = 16; }
//	message LabeledValue { optional int64 value = 1; optional string label = 2; }
//	message Range { optional int64 min = 1; optional int64 max = 2; }
//	message Field {
//	  optional FieldType type = 1; optional string name = 2;
//	  optional uint32 min_size = 3; optional uint32 max_size = 4;
//	  optional sint32 multiplier = 5; repeated LabeledValue label = 6;
//	  repeated Range range = 7; repeated Field field = 8;
//	}
//	message FrameFormat { repeated Field field = 1; }
//	enum SubDeviceRange { ROOT_DEVICE = 1; ROOT_OR_ALL_SUBDEVICE = 2;
//	  ROOT_OR_SUBDEVICES = 3; ONLY_SUBDEVICES = 4; }
//	message Pid {
//	  optional string name = 1; optional uint32 value = 2;
//	  optional FrameFormat get_request = 3; optional FrameFormat get_response = 4;
//	  optional FrameFormat set_request = 5; optional FrameFormat set_response = 6;
//	  optional SubDeviceRange get_sub_device_range = 7;
//	  optional SubDeviceRange set_sub_device_range = 8;
//	  optional FrameFormat discovery_request = 9;
//	  optional FrameFormat discovery_response = 10;
//	  optional SubDeviceRange discovery_sub_device_range = 11;
//	}
//	message Manufacturer { optional uint32 manufacturer_id = 1;
//	  optional string manufacturer_name = 2; repeated Pid pid = 3; }
//	message PidStore { repeated Pid pid = 1; repeated Manufacturer manufacturer = 2;
//	  optional uint64 version = 3; }
//
// The descriptor is assembled here rather than generated so the loader has
// no build step.

const schemaPackage = "olardm.pids"

var storeDescriptor protoreflect.MessageDescriptor

func init() {
	fd, err := protodesc.NewFile(schemaFile(), new(protoregistry.Files))
	if err != nil {
		panic("pid: invalid definition schema: " + err.Error())
	}
	storeDescriptor = fd.Messages().ByName("PidStore")
}

func schemaFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("olardm/pids.proto"),
		Package: proto.String(schemaPackage),
		Syntax:  proto.String("proto2"),
		EnumType: []*descriptorpb.EnumDescriptorProto{
			enumType("FieldType",
				"BOOL", "UINT8", "UINT16", "UINT32", "STRING", "GROUP", "INT8", "INT16",
				"INT32", "IPV4", "UID", "MAC", "IPV6", "URL", "UINT64", "INT64"),
			enumType("SubDeviceRange",
				"ROOT_DEVICE", "ROOT_OR_ALL_SUBDEVICE", "ROOT_OR_SUBDEVICES", "ONLY_SUBDEVICES"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			message("LabeledValue",
				scalar("value", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				scalar("label", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			),
			message("Range",
				scalar("min", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				scalar("max", 2, descriptorpb.FieldDescriptorProto_TYPE_INT64),
			),
			message("Field",
				enumField("type", 1, "FieldType"),
				scalar("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("min_size", 3, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
				scalar("max_size", 4, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
				scalar("multiplier", 5, descriptorpb.FieldDescriptorProto_TYPE_SINT32),
				repeated("label", 6, "LabeledValue"),
				repeated("range", 7, "Range"),
				repeated("field", 8, "Field"),
			),
			message("FrameFormat",
				repeated("field", 1, "Field"),
			),
			message("Pid",
				scalar("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalar("value", 2, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
				messageField("get_request", 3, "FrameFormat"),
				messageField("get_response", 4, "FrameFormat"),
				messageField("set_request", 5, "FrameFormat"),
				messageField("set_response", 6, "FrameFormat"),
				enumField("get_sub_device_range", 7, "SubDeviceRange"),
				enumField("set_sub_device_range", 8, "SubDeviceRange"),
				messageField("discovery_request", 9, "FrameFormat"),
				messageField("discovery_response", 10, "FrameFormat"),
				enumField("discovery_sub_device_range", 11, "SubDeviceRange"),
			),
			message("Manufacturer",
				scalar("manufacturer_id", 1, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
				scalar("manufacturer_name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				repeated("pid", 3, "Pid"),
			),
			message("PidStore",
				repeated("pid", 1, "Pid"),
				repeated("manufacturer", 2, "Manufacturer"),
				scalar("version", 3, descriptorpb.FieldDescriptorProto_TYPE_UINT64),
			),
		},
	}
}

func enumType(name string, values ...string) *descriptorpb.EnumDescriptorProto {
	e := &descriptorpb.EnumDescriptorProto{Name: proto.String(name)}
	for i, v := range values {
		e.Value = append(e.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v),
			Number: proto.Int32(int32(i + 1)),
		})
	}
	return e
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func scalar(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func enumField(name string, number int32, enum string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, number, descriptorpb.FieldDescriptorProto_TYPE_ENUM)
	f.TypeName = proto.String("." + schemaPackage + "." + enum)
	return f
}

func messageField(name string, number int32, msg string) *descriptorpb.FieldDescriptorProto {
	f := scalar(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String("." + schemaPackage + "." + msg)
	return f
}

func repeated(name string, number int32, msg string) *descriptorpb.FieldDescriptorProto {
	f := messageField(name, number, msg)
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}
