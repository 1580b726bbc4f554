// Package store 提供知识库服务的向量存储层。
//
// 该包定义了向量存储的接口抽象和 Milvus 实现，
// 支持按确定性 ID 幂等写入、按页面删除以及带元数据过滤的相似度检索。
package store
